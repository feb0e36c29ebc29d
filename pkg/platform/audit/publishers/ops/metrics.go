package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for ops audit tracking.
type Metrics struct {
	Tracked         prometheus.Counter
	Sampled         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
	Buffered        prometheus.Gauge
}

// NewMetrics registers the ops audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Tracked: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_ops_tracked_total",
			Help: "Total number of operational audit events persisted",
		}),
		Sampled: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_ops_sampled_total",
			Help: "Total number of operational audit events dropped by sampling",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_ops_dropped_total",
			Help: "Total number of operational audit events dropped because the buffer was full",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_audit_ops_persist_failures_total",
			Help: "Total number of operational audit events that failed to persist",
		}),
		Buffered: f.NewGauge(prometheus.GaugeOpts{
			Name: "verity_audit_ops_buffered",
			Help: "Operational audit events waiting to be persisted",
		}),
	}
}

func (m *Metrics) incTracked(n int) {
	if m != nil {
		m.Tracked.Add(float64(n))
	}
}

func (m *Metrics) incSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) incPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) setBuffered(n int) {
	if m != nil {
		m.Buffered.Set(float64(n))
	}
}
