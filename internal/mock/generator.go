package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/callpulse/hub/internal/event"
	"github.com/callpulse/hub/internal/session"
	"github.com/jonboulle/clockwork"
)

// Publisher takes one transcript chunk through classification and broadcast.
// *hub.Relay satisfies it.
type Publisher interface {
	Publish(ctx context.Context, agentID, text string) []event.Event
}

type mockAgent struct {
	id      string
	handle  session.Handle
	pattern string
	lines   []string
	lineIdx int
	// quietEvery skips one tick in n so agents drift out of lockstep.
	quietEvery int
}

var calmLines = []string{
	"Thanks for calling, how can I help you today?",
	"Sure, let me pull up your account.",
	"The weather is nice today, hope you get to enjoy it.",
	"Great, that change is all set for you.",
	"Is there anything else I can help with?",
}

var escalatingLines = []string{
	"I have been on hold for forty minutes.",
	"This is the third time I am calling about this.",
	"I am furious about this bill.",
	"This is outrageous, I want a supervisor now.",
	"Fine. Just fix it.",
}

var anxiousLines = []string{
	"I noticed a charge I do not recognise.",
	"I am worried someone has access to my card.",
	"I am terrified they will empty the account.",
	"Okay, freezing the card sounds good.",
	"Thank you, that is a relief.",
}

var somberLines = []string{
	"I need to close my late husband's account.",
	"It has been a really hard month.",
	"I feel so sad going through all his paperwork.",
	"Thank you for being patient with me.",
}

func NewGenerator(pub Publisher, agents *session.Store, clock clockwork.Clock, interval time.Duration) *MockGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &MockGenerator{
		pub:      pub,
		agents:   agents,
		clock:    clock,
		interval: interval,
	}
}

// MockGenerator drives a fixed cast of synthetic agents through the relay so
// supervisors see traffic without real agents connected.
type MockGenerator struct {
	pub      Publisher
	agents   *session.Store
	clock    clockwork.Clock
	interval time.Duration
	sessions []*mockAgent
}

func (g *MockGenerator) Start(ctx context.Context) {
	now := g.clock.Now()

	g.sessions = []*mockAgent{
		{id: "mock-billing-calm", pattern: "calm", lines: calmLines, quietEvery: 4},
		{id: "mock-billing-escalation", pattern: "escalating", lines: escalatingLines},
		{id: "mock-fraud-anxious", pattern: "anxious", lines: anxiousLines, quietEvery: 3},
		{id: "mock-bereavement", pattern: "somber", lines: somberLines, quietEvery: 5},
	}

	for _, ma := range g.sessions {
		ma.handle = g.agents.Add(session.Agent{ID: ma.id, RemoteAddr: "demo", ConnectedAt: now})
	}
	slog.Info("Demo feed started", "agents", len(g.sessions), "interval", g.interval)

	go g.run(ctx)
}

func (g *MockGenerator) run(ctx context.Context) {
	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()
	defer g.stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			tick++
			for _, ma := range g.sessions {
				g.advance(ctx, ma, tick)
			}
		}
	}
}

func (g *MockGenerator) advance(ctx context.Context, ma *mockAgent, tick int) {
	if ma.quietEvery > 0 && tick%ma.quietEvery == 0 {
		return
	}

	line := ma.lines[ma.lineIdx%len(ma.lines)]
	ma.lineIdx++

	events := g.pub.Publish(ctx, ma.id, line)
	if len(events) == 0 {
		return
	}
	last := events[len(events)-1]
	g.agents.Record(ma.handle, last.Emotion, last.Score, g.clock.Now())
}

func (g *MockGenerator) stop() {
	for _, ma := range g.sessions {
		g.agents.Remove(ma.handle)
	}
	slog.Info("Demo feed stopped")
}
