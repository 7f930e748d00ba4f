package optim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/promptlab/internal/domain"
)

// Example outcomes recorded by the adapter.
const (
	outcomeScored       = "scored"
	outcomeFormatFailed = "format_failed"
	outcomeError        = "error"
)

// Batch results recorded by the adapter.
const (
	batchEvaluated        = "evaluated"
	batchInvalidCandidate = "invalid_candidate"
)

// Metrics holds the adapter's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	batches  *prometheus.CounterVec
	examples *prometheus.CounterVec
	scores   *prometheus.HistogramVec
	penalty  *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the adapter collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptlab",
			Subsystem: "adapter",
			Name:      "batches_total",
			Help:      "Candidate batch evaluations by result",
		}, []string{"task", "result"}),

		examples: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptlab",
			Subsystem: "adapter",
			Name:      "examples_total",
			Help:      "Examples evaluated by outcome",
		}, []string{"task", "outcome"}),

		scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptlab",
			Subsystem: "adapter",
			Name:      "example_score",
			Help:      "Distribution of penalized example scores",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}, []string{"task"}),

		penalty: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptlab",
			Subsystem: "adapter",
			Name:      "length_penalty",
			Help:      "Candidate-level length penalty per batch",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.2, 0.4, 0.6, 1.0, 2.0},
		}, []string{"task"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptlab",
			Subsystem: "adapter",
			Name:      "batch_duration_seconds",
			Help:      "Wall time to evaluate one batch",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"task"}),
	}
}

func (m *Metrics) recordBatch(task domain.TaskType, result string, penalty float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(string(task), result).Inc()
	m.duration.WithLabelValues(string(task)).Observe(elapsed.Seconds())
	if result == batchEvaluated {
		m.penalty.WithLabelValues(string(task)).Observe(penalty)
	}
}

func (m *Metrics) recordExample(task domain.TaskType, outcome string, score float64) {
	if m == nil {
		return
	}
	m.examples.WithLabelValues(string(task), outcome).Inc()
	m.scores.WithLabelValues(string(task)).Observe(score)
}
