package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Pipeline latency by operation
	PipelineLatency *prometheus.HistogramVec

	// Operation outcomes: success, failed, pending
	Outcomes *prometheus.CounterVec

	// Channel transitions made by the pipeline, by channel and target state
	Transitions *prometheus.CounterVec

	// OCR confidence of uploaded documents
	Confidence prometheus.Histogram
}

// New creates a Metrics instance registered with the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PipelineLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_pipeline_duration_seconds",
			Help:    "Duration of verification pipeline operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_pipeline_outcomes_total",
			Help: "Verification pipeline outcomes by operation",
		}, []string{"operation", "outcome"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_channel_transitions_total",
			Help: "Verification channel state changes made by the pipeline",
		}, []string{"channel", "state"}),

		Confidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_document_ocr_confidence",
			Help:    "Text recognition confidence of uploaded documents",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
	}
}

// ObservePipeline records one operation's latency and outcome.
func (m *Metrics) ObservePipeline(operation, outcome string, d time.Duration) {
	if m != nil {
		m.PipelineLatency.WithLabelValues(operation).Observe(d.Seconds())
		m.Outcomes.WithLabelValues(operation, outcome).Inc()
	}
}

// IncTransition records a channel moving to state.
func (m *Metrics) IncTransition(channel, state string) {
	if m != nil {
		m.Transitions.WithLabelValues(channel, state).Inc()
	}
}

// ObserveConfidence records the OCR confidence of one upload.
func (m *Metrics) ObserveConfidence(c int) {
	if m != nil {
		m.Confidence.Observe(float64(c))
	}
}
