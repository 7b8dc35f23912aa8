package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Conversation turns by outcome",
		},
		[]string{"outcome"}, // resolved, rejected
	)

	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_submissions_rejected_total",
			Help: "Submissions ignored before reaching the generator",
		},
		[]string{"reason"}, // busy, empty
	)

	GeneratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_generator_duration_seconds",
			Help:    "Latency of the external suggestion generator",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	TopMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_top_matches",
			Help:    "Number of inline product matches per resolved turn",
			Buckets: []float64{0, 1, 2, 3, 4},
		},
	)

	FeedbackToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_feedback_toggles_total",
			Help: "Product feedback toggles by resulting state",
		},
		[]string{"state"}, // like, dislike, neutral
	)

	CorruptState = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_corrupt_state_total",
			Help: "Stored values discarded because they failed to decode",
		},
		[]string{"key"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)
)
