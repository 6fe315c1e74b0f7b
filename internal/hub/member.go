package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the write side of a supervisor connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Member is one registered supervisor connection. Its send queue is owned by
// the write pump; the registry only enqueues and closes it.
type Member struct {
	ID   string
	conn Conn
	r    *Registry
	send chan []byte
}

func newMember(r *Registry, conn Conn) *Member {
	return &Member{
		ID:   uuid.NewString(),
		conn: conn,
		r:    r,
		send: make(chan []byte, r.opts.SendBuffer),
	}
}

func (m *Member) writePump() {
	defer m.conn.Close()

	var tick <-chan time.Time
	if m.r.opts.PingInterval > 0 {
		ticker := time.NewTicker(m.r.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case msg, ok := <-m.send:
			if !ok {
				m.setDeadline()
				_ = m.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			m.setDeadline()
			if err := m.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				m.r.remove(m, "write_error")
				return
			}
		case <-tick:
			m.setDeadline()
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.r.remove(m, "ping_error")
				return
			}
		}
	}
}

func (m *Member) setDeadline() {
	if m.r.opts.WriteTimeout > 0 {
		_ = m.conn.SetWriteDeadline(time.Now().Add(m.r.opts.WriteTimeout))
	}
}
