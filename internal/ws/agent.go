package ws

import (
	"context"
	"log/slog"

	"github.com/callpulse/hub/internal/hub"
	"github.com/callpulse/hub/internal/logging"
	"github.com/callpulse/hub/internal/metrics"
	"github.com/callpulse/hub/internal/session"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// MessageReader is the read side of a connection. *websocket.Conn satisfies it.
type MessageReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// AgentSession streams one agent's transcript chunks into the relay until
// the connection ends.
type AgentSession struct {
	ID         string
	conn       MessageReader
	relay      *hub.Relay
	agents     *session.Store
	clock      clockwork.Clock
	remoteAddr string
	log        *slog.Logger
}

func NewAgentSession(id string, conn MessageReader, relay *hub.Relay, agents *session.Store, clock clockwork.Clock) *AgentSession {
	return &AgentSession{
		ID:     id,
		conn:   conn,
		relay:  relay,
		agents: agents,
		clock:  clock,
		log:    logging.WithAgent(id),
	}
}

// Run reads until the peer disconnects or the transport fails. Either way
// the session ends quietly; nothing is retried.
func (a *AgentSession) Run(ctx context.Context) {
	h := a.agents.Add(session.Agent{ID: a.ID, RemoteAddr: a.remoteAddr, ConnectedAt: a.clock.Now()})
	metrics.ConnectedAgents.Inc()
	a.log.Info("Agent connected", "remote_addr", a.remoteAddr)

	defer func() {
		a.agents.Remove(h)
		metrics.ConnectedAgents.Dec()
		a.log.Info("Agent disconnected", "remote_addr", a.remoteAddr)
	}()

	for {
		msgType, data, err := a.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				a.log.Debug("Agent read ended", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		events := a.relay.Publish(ctx, a.ID, string(data))
		if len(events) == 0 {
			continue
		}
		last := events[len(events)-1]
		a.agents.Record(h, last.Emotion, last.Score, a.clock.Now())
		a.log.Debug("Transcript relayed", "emotion", last.Emotion, "score", last.Score, "events", len(events))
	}
}
