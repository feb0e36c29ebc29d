package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for notification delivery.
type Metrics struct {
	Delivered *prometheus.CounterVec
	Dropped   prometheus.Counter
	Fallbacks prometheus.Counter
}

// NewMetrics registers the notification metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Delivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_notify_delivered_total",
			Help: "Notifications handed to a notifier, by outcome",
		}, []string{"outcome"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_notify_dropped_total",
			Help: "Notifications dropped because the queue was full or closed",
		}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "verity_notify_fallback_total",
			Help: "Notifications routed to the fallback notifier while the circuit was open",
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m != nil {
		m.Delivered.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) incFallback() {
	if m != nil {
		m.Fallbacks.Inc()
	}
}
