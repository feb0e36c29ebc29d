package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for registry reconciliation.
type Metrics struct {
	// Lookup latency by source
	LookupLatency *prometheus.HistogramVec

	// Lookup outcomes by source and outcome
	LookupOutcome *prometheus.CounterVec

	// Cache hits and misses by source
	CacheRequests *prometheus.CounterVec
}

// New creates a Metrics instance registered with the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_registry_lookup_duration_seconds",
			Help:    "Duration of registry lookups by source",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),

		LookupOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_registry_lookup_outcomes_total",
			Help: "Registry lookup outcomes by source and outcome",
		}, []string{"source", "outcome"}), // outcome: verified, not_verified, error, blocked

		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_registry_cache_requests_total",
			Help: "Registry cache lookups by source and result",
		}, []string{"source", "result"}), // result: hit, miss
	}
}

// ObserveLookup records the duration and outcome of one registry lookup.
func (m *Metrics) ObserveLookup(source, outcome string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(source).Observe(d.Seconds())
		m.LookupOutcome.WithLabelValues(source, outcome).Inc()
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(source string) {
	if m != nil {
		m.CacheRequests.WithLabelValues(source, "hit").Inc()
	}
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(source string) {
	if m != nil {
		m.CacheRequests.WithLabelValues(source, "miss").Inc()
	}
}
