// Package event turns a classified transcript into the messages supervisors
// receive. It performs no I/O.
package event

import (
	"strings"

	"github.com/jonboulle/clockwork"
)

type Type string

const (
	TypeTranscript Type = "transcript"
	TypeAlert      Type = "alert"
)

// Event is the wire shape sent to supervisors. Transcript and alert events
// differ only in Type.
type Event struct {
	Type    Type    `json:"type"`
	AgentID string  `json:"agentId"`
	Text    string  `json:"text"`
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"`
	TS      int64   `json:"ts"`
}

// Policy decides which classified transcripts raise an alert.
type Policy struct {
	Emotions  map[string]bool
	Threshold float64
}

// NewPolicy builds a policy from a label list. Labels are matched
// case-insensitively.
func NewPolicy(emotions []string, threshold float64) Policy {
	p := Policy{Emotions: make(map[string]bool, len(emotions)), Threshold: threshold}
	for _, e := range emotions {
		p.Emotions[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return p
}

// ShouldAlert reports whether label is an alert emotion and score strictly
// exceeds the threshold. Matching ignores case, so a model reporting "Anger"
// alerts the same as "anger"; an exact-match set would let it through.
func (p Policy) ShouldAlert(label string, score float64) bool {
	return p.Emotions[strings.ToLower(label)] && score > p.Threshold
}

type Builder struct {
	policy Policy
	clock  clockwork.Clock
}

func NewBuilder(policy Policy, clock clockwork.Clock) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{policy: policy, clock: clock}
}

func (b *Builder) Policy() Policy {
	return b.policy
}

// Build returns the events for one transcript in emission order: the alert
// first when the policy fires, then the transcript. Each event is stamped
// when it is built.
func (b *Builder) Build(agentID, text, label string, score float64) []Event {
	events := make([]Event, 0, 2)
	if b.policy.ShouldAlert(label, score) {
		events = append(events, b.make(TypeAlert, agentID, text, label, score))
	}
	return append(events, b.make(TypeTranscript, agentID, text, label, score))
}

func (b *Builder) make(typ Type, agentID, text, label string, score float64) Event {
	return Event{
		Type:    typ,
		AgentID: agentID,
		Text:    text,
		Emotion: label,
		Score:   score,
		TS:      b.clock.Now().UnixMilli(),
	}
}
