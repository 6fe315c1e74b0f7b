package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub Metrics
var (
	// ConnectedSupervisors tracks registered supervisor connections
	ConnectedSupervisors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callpulse_connected_supervisors",
			Help: "Number of supervisor connections currently registered",
		},
	)

	// ConnectedAgents tracks open agent connections
	ConnectedAgents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callpulse_connected_agents",
			Help: "Number of agent connections currently streaming",
		},
	)

	// BroadcastsTotal tracks broadcasts by event type
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callpulse_broadcasts_total",
			Help: "Total events broadcast to supervisors by event type",
		},
		[]string{"type"},
	)

	// DeliveriesTotal tracks per-member enqueues that succeeded
	DeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callpulse_deliveries_total",
			Help: "Total events queued to individual supervisor connections",
		},
	)

	// EvictedMembersTotal tracks members removed after a failed delivery
	EvictedMembersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callpulse_evicted_members_total",
			Help: "Supervisor connections removed after a delivery failure by reason",
		},
		[]string{"reason"},
	)
)

// Classification Metrics
var (
	// TranscriptsTotal tracks classified transcripts by emotion
	TranscriptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callpulse_transcripts_total",
			Help: "Total classified transcripts by emotion label",
		},
		[]string{"emotion"},
	)

	// AlertsTotal tracks raised alerts by emotion
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callpulse_alerts_total",
			Help: "Total alerts raised by emotion label",
		},
		[]string{"emotion"},
	)

	// ClassifierFailuresTotal tracks classifications downgraded to unknown
	ClassifierFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callpulse_classifier_failures_total",
			Help: "Classifications that fell back to the unknown result by cause",
		},
		[]string{"cause"},
	)

	// ClassifierDuration tracks model call latency in seconds
	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "callpulse_classifier_duration_seconds",
			Help:    "Emotion model call duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// ClassifierCircuitState tracks the model circuit breaker (0=closed, 1=half-open, 2=open)
	ClassifierCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callpulse_classifier_circuit_state",
			Help: "Current classifier circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Connection Metrics
var (
	// ConnectionsRejectedTotal tracks upgrades refused before registration
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callpulse_connections_rejected_total",
			Help: "WebSocket upgrades rejected by endpoint and reason",
		},
		[]string{"endpoint", "reason"},
	)
)
