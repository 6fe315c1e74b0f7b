package hub

import (
	"context"
	"log/slog"
	"strings"

	"github.com/callpulse/hub/internal/classifier"
	"github.com/callpulse/hub/internal/event"
	"github.com/callpulse/hub/internal/metrics"
)

// Broadcaster delivers one event to every registered supervisor.
type Broadcaster interface {
	Broadcast(e event.Event) int
}

// Relay runs one transcript through classification, event building and
// broadcast.
type Relay struct {
	classifier classifier.Classifier
	builder    *event.Builder
	out        Broadcaster
	maxLength  int
	// labels bounds the emotion label values reported to metrics.
	labels map[string]bool
}

// otherLabel replaces metric label values outside the known set.
const otherLabel = "other"

// modelLabels are the labels of the default emotion model plus the
// classifier's own fallbacks.
var modelLabels = []string{"anger", "disgust", "fear", "joy", "neutral", "sadness", "surprise", classifier.UnknownLabel}

func NewRelay(c classifier.Classifier, b *event.Builder, out Broadcaster, maxLength int) *Relay {
	labels := make(map[string]bool, len(modelLabels))
	for _, l := range modelLabels {
		labels[l] = true
	}
	for l := range b.Policy().Emotions {
		labels[l] = true
	}
	return &Relay{classifier: c, builder: b, out: out, maxLength: maxLength, labels: labels}
}

// metricLabel folds label into the known set so a misbehaving model cannot
// grow metric cardinality.
func (r *Relay) metricLabel(label string) string {
	label = strings.ToLower(label)
	if r.labels[label] {
		return label
	}
	return otherLabel
}

// Publish classifies text for agentID and broadcasts the resulting events,
// alert before transcript. Blank text is dropped and yields no events.
func (r *Relay) Publish(ctx context.Context, agentID, text string) []event.Event {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	res := r.classifier.Classify(ctx, text, r.maxLength)
	events := r.builder.Build(agentID, text, res.Label, res.Score)

	for _, e := range events {
		n := r.out.Broadcast(e)
		if e.Type == event.TypeAlert {
			metrics.AlertsTotal.WithLabelValues(r.metricLabel(e.Emotion)).Inc()
			slog.Info("Alert raised", "agent_id", agentID, "emotion", e.Emotion, "score", e.Score, "supervisors", n)
		}
	}
	metrics.TranscriptsTotal.WithLabelValues(r.metricLabel(res.Label)).Inc()

	return events
}
