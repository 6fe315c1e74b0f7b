package ws

import (
	"log/slog"

	"github.com/callpulse/hub/internal/hub"
	"github.com/callpulse/hub/internal/logging"
)

// SupervisorConn is a full-duplex supervisor connection.
type SupervisorConn interface {
	hub.Conn
	MessageReader
}

// SupervisorSession keeps one supervisor registered for as long as its
// connection stays readable. Events reach it through the member's write
// pump; inbound messages are read and discarded.
type SupervisorSession struct {
	conn     SupervisorConn
	registry *hub.Registry
	member   *hub.Member
	log      *slog.Logger
}

// NewSupervisorSession registers conn with the registry.
func NewSupervisorSession(conn SupervisorConn, registry *hub.Registry) *SupervisorSession {
	m := registry.Register(conn)
	return &SupervisorSession{
		conn:     conn,
		registry: registry,
		member:   m,
		log:      logging.WithSupervisor(m.ID),
	}
}

func (s *SupervisorSession) ID() string {
	return s.member.ID
}

// Run blocks until the connection fails, then deregisters.
func (s *SupervisorSession) Run() {
	defer s.registry.Deregister(s.member)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		// Reserved for supervisor control commands.
		s.log.Debug("Ignoring supervisor message", "bytes", len(data))
	}
}
