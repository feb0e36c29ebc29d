package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts rate limit decisions.
type Metrics struct {
	Checks   *prometheus.CounterVec
	Degraded prometheus.Counter
}

// New registers the metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_ratelimit_checks_total",
			Help: "Rate limit checks by class and outcome",
		}, []string{"class", "outcome"}),
		Degraded: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_ratelimit_degraded_checks_total",
			Help: "Checks answered by the in-memory fallback while the primary store was unavailable",
		}),
	}
}

// ObserveCheck records one decision: allowed, limited or error.
func (m *Metrics) ObserveCheck(class, outcome string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(class, outcome).Inc()
}

// IncDegraded records a check served by the fallback store.
func (m *Metrics) IncDegraded() {
	if m == nil {
		return
	}
	m.Degraded.Inc()
}
