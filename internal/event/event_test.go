package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestBuilder() *Builder {
	return NewBuilder(NewPolicy([]string{"anger", "fear", "sadness"}, 0.6), clockwork.NewFakeClockAt(testNow))
}

func TestBuild_AlertThenTranscript(t *testing.T) {
	events := newTestBuilder().Build("agent-1", "I am furious about this bill", "anger", 0.85)

	require.Len(t, events, 2)
	assert.Equal(t, TypeAlert, events[0].Type)
	assert.Equal(t, TypeTranscript, events[1].Type)
	for _, e := range events {
		assert.Equal(t, "agent-1", e.AgentID)
		assert.Equal(t, "I am furious about this bill", e.Text)
		assert.Equal(t, "anger", e.Emotion)
		assert.Equal(t, 0.85, e.Score)
		assert.Equal(t, testNow.UnixMilli(), e.TS)
	}
}

func TestBuild_TranscriptOnly(t *testing.T) {
	events := newTestBuilder().Build("agent-1", "The weather is nice today", "joy", 0.99)

	require.Len(t, events, 1)
	assert.Equal(t, TypeTranscript, events[0].Type)
	assert.Equal(t, "joy", events[0].Emotion)
	assert.Equal(t, 0.99, events[0].Score)
}

func TestShouldAlert(t *testing.T) {
	p := NewPolicy([]string{"anger", "fear", "sadness"}, 0.6)

	tests := []struct {
		label string
		score float64
		want  bool
	}{
		{"anger", 0.85, true},
		{"fear", 0.61, true},
		{"sadness", 1.0, true},
		{"anger", 0.6, false},
		{"anger", 0.3, false},
		{"joy", 0.99, false},
		{"unknown", 0.0, false},
		{"ANGER", 0.9, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.ShouldAlert(tt.label, tt.score), "%s@%v", tt.label, tt.score)
	}
}

func TestBuild_AlertLabelCaseIgnored(t *testing.T) {
	events := newTestBuilder().Build("agent-1", "I am terrified", "Fear", 0.7)

	require.Len(t, events, 2)
	assert.Equal(t, TypeAlert, events[0].Type)
	assert.Equal(t, "Fear", events[0].Emotion, "the model's label is forwarded unchanged")
}

func TestBuild_UnknownNeverAlerts(t *testing.T) {
	events := newTestBuilder().Build("agent-1", "text", "unknown", 0)

	require.Len(t, events, 1)
	assert.Equal(t, TypeTranscript, events[0].Type)
	assert.Equal(t, "unknown", events[0].Emotion)
	assert.Equal(t, 0.0, events[0].Score)
}

func TestBuild_ConfigurablePolicy(t *testing.T) {
	b := NewBuilder(NewPolicy([]string{" Disgust "}, 0.9), clockwork.NewFakeClockAt(testNow))

	assert.Len(t, b.Build("a", "t", "disgust", 0.95), 2)
	assert.Len(t, b.Build("a", "t", "disgust", 0.9), 1)
	assert.Len(t, b.Build("a", "t", "anger", 0.99), 1)
}

func TestBuild_StampsEachEvent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	b := NewBuilder(NewPolicy([]string{"anger"}, 0.6), clock)

	first := b.Build("a", "t", "anger", 0.9)
	clock.Advance(5 * time.Millisecond)
	second := b.Build("a", "t", "anger", 0.9)

	assert.Equal(t, testNow.UnixMilli(), first[0].TS)
	assert.Equal(t, testNow.Add(5*time.Millisecond).UnixMilli(), second[1].TS)
}

func TestEvent_WireFormat(t *testing.T) {
	data, err := json.Marshal(Event{
		Type: TypeAlert, AgentID: "agent-7", Text: "help", Emotion: "fear", Score: 0.7, TS: 1700000000123,
	})
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"type":"alert","agentId":"agent-7","text":"help","emotion":"fear","score":0.7,"ts":1700000000123}`,
		string(data))
}
