package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/callpulse/hub/internal/event"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second

	// DefaultIdleTimeout suits the hub's default 30s ping interval. It must
	// exceed the hub's hub.ping_interval, or the console drops idle
	// connections and redials.
	DefaultIdleTimeout = 90 * time.Second
)

// WSClient holds the console's supervisor connection to the hub.
type WSClient struct {
	url   string
	token string
	// idleTimeout bounds the silence between frames, pings included.
	// Zero waits forever, for hubs running with pings disabled.
	idleTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSClient creates a client for the hub's /ws/supervisor URL.
func NewWSClient(url, token string, idleTimeout time.Duration) *WSClient {
	return &WSClient{url: url, token: token, idleTimeout: idleTimeout}
}

func (c *WSClient) extendDeadline(conn *websocket.Conn) {
	if c.idleTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	}
}

// ConnectedMsg is sent when the supervisor connection is up.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the connection drops.
type DisconnectedMsg struct{ Err error }

// EventMsg delivers one transcript or alert from the hub.
type EventMsg struct{ Event event.Event }

// Listen returns a command that dials the hub, retrying with exponential
// backoff until it connects or ctx ends.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			if ctx.Err() != nil {
				return nil
			}

			var header http.Header
			if c.token != "" {
				header = http.Header{"X-Callpulse-Token": {c.token}}
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
			if err != nil {
				slog.Debug("Dial failed", "url", c.url, "error", err, "retry_in", delay)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			return ConnectedMsg{}
		}
	}
}

// ReadLoop returns a command that blocks until the next event arrives.
// Frames that are not events are skipped.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return DisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		// The hub pings on an interval; each ping extends the deadline.
		conn.SetPingHandler(func(data string) error {
			c.extendDeadline(conn)
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		})
		c.extendDeadline(conn)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return DisconnectedMsg{Err: err}
			}

			c.extendDeadline(conn)

			var e event.Event
			if err := json.Unmarshal(data, &e); err != nil || e.Type == "" {
				continue
			}
			return EventMsg{Event: e}
		}
	}
}

// Close drops the current connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		conn.Close()
	}
}
