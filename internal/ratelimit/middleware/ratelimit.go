package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"verity/internal/ratelimit/metrics"
	"verity/internal/ratelimit/models"
	"verity/pkg/platform/circuit"
	"verity/pkg/platform/httputil"
	"verity/pkg/requestcontext"
)

// Store is a sliding window bucket store.
type Store interface {
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error)
}

// Middleware enforces per-subject quotas. When the primary store keeps
// failing, the circuit opens and checks are answered by the fallback store
// with X-RateLimit-Status: degraded. With no fallback, errors fail open.
type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[models.Class]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithFallback sets the store used while the primary is unavailable.
func WithFallback(s Store) Option {
	return func(m *Middleware) { m.fallback = s }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		if b != nil {
			m.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mt }
}

// WithDisabled turns rate limiting off.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

// New builds the middleware. Classes missing from limits are not limited.
func New(primary Store, limits map[models.Class]models.Limit, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: circuit.New("ratelimit", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3)),
		limits:  limits,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		m.logger.Info("rate limiting disabled")
	}
	return m
}

// Limit returns middleware charging one request against class for the
// authenticated subject, or the client address when there is none.
func (m *Middleware) Limit(class models.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limit, ok := m.limits[class]
		if m.disabled || !ok || limit.Requests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := models.Key(class, subject(r))

			result, degraded, err := m.check(ctx, key, limit)
			if err != nil {
				m.metrics.ObserveCheck(string(class), "error")
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				m.metrics.ObserveCheck(string(class), "limited")
				m.logger.InfoContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", string(class),
					"retry_after", result.RetryAfter,
				)
				writeRateLimitExceeded(w, result)
				return
			}
			m.metrics.ObserveCheck(string(class), "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

// check asks the primary store and falls back when it fails or the circuit
// is open. The primary is still consulted while open so the circuit can
// close again.
func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool, error) {
	result, err := m.primary.AllowN(ctx, key, 1, limit.Requests, limit.Window)
	if err == nil {
		usePrimary, change := m.breaker.RecordSuccess()
		if change.Closed {
			m.logger.InfoContext(ctx, "rate limit store recovered")
		}
		if usePrimary || m.fallback == nil {
			return result, false, nil
		}
		return m.fromFallback(ctx, key, limit)
	}

	_, change := m.breaker.RecordFailure()
	if change.Opened {
		m.logger.WarnContext(ctx, "rate limit store unavailable, using in-memory fallback", "error", err)
	}
	if m.fallback == nil {
		return nil, false, err
	}
	return m.fromFallback(ctx, key, limit)
}

func (m *Middleware) fromFallback(ctx context.Context, key string, limit models.Limit) (*models.Result, bool, error) {
	m.metrics.IncDegraded()
	result, err := m.fallback.AllowN(ctx, key, 1, limit.Requests, limit.Window)
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func subject(r *http.Request) string {
	ctx := r.Context()
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		return "user:" + userID.String()
	}
	if actor := requestcontext.ActorFrom(ctx); actor.Subject != "" {
		return "actor:" + actor.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:          "rate_limit_exceeded",
		Message:        "You have exceeded your request quota for this operation.",
		QuotaLimit:     result.Limit,
		QuotaRemaining: result.Remaining,
		QuotaReset:     result.ResetAt,
		RetryAfter:     result.RetryAfter,
	})
}
