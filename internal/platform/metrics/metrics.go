package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level HTTP metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	UploadBytes     prometheus.Histogram
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern and status",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		UploadBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_document_upload_bytes",
			Help:    "Size of uploaded verification documents",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 7),
		}),
	}
}

// ObserveUpload records the size of one uploaded document.
func (m *Metrics) ObserveUpload(size int64) {
	if m != nil {
		m.UploadBytes.Observe(float64(size))
	}
}

// Middleware records request duration labelled with the chi route pattern
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
