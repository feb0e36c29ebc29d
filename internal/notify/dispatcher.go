package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"verity/pkg/platform/circuit"
)

const (
	defaultBufferSize = 256
	defaultTimeout    = 5 * time.Second
)

// Dispatcher queues events and delivers them from a background goroutine.
// Publish never blocks: a full queue drops the event. Repeated delivery
// failures open a circuit that routes events to the fallback notifier until
// the primary recovers.
type Dispatcher struct {
	primary    Notifier
	fallback   Notifier
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *Metrics
	timeout    time.Duration
	retryEvery int

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	sinceOpen int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithFallback(n Notifier) Option {
	return func(d *Dispatcher) {
		if n != nil {
			d.fallback = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithDeliveryTimeout bounds each call to the primary notifier.
func WithDeliveryTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithRetryInterval sets how many events go to the fallback while the
// circuit is open before one is tried against the primary again.
func WithRetryInterval(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.retryEvery = n
		}
	}
}

// NewDispatcher starts the delivery goroutine. Call Close to drain it.
func NewDispatcher(primary Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		primary:    primary,
		logger:     slog.New(slog.DiscardHandler),
		timeout:    defaultTimeout,
		retryEvery: 10,
		queue:      make(chan Event, defaultBufferSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fallback == nil {
		d.fallback = NewLogNotifier(d.logger)
	}
	if d.breaker == nil {
		d.breaker = circuit.New("notify")
	}
	go d.run()
	return d
}

// Publish enqueues an event. It assigns an ID and timestamp when missing.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.incDropped()
		d.logger.WarnContext(ctx, "notification dropped after close", "event_id", e.ID.String(), "type", string(e.Type))
		return
	}
	select {
	case d.queue <- e:
	default:
		d.metrics.incDropped()
		d.logger.WarnContext(ctx, "notification queue full, dropping event",
			"event_id", e.ID.String(),
			"type", string(e.Type),
			"user_id", e.UserID,
		)
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	if d.breaker.IsOpen() {
		d.sinceOpen++
		if d.sinceOpen < d.retryEvery {
			d.metrics.incFallback()
			d.sendFallback(e)
			return
		}
		d.sinceOpen = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	err := d.primary.Notify(ctx, e)
	cancel()

	if err == nil {
		d.metrics.observe("delivered")
		if _, change := d.breaker.RecordSuccess(); change.Closed {
			d.logger.Info("notification circuit closed", "breaker", d.breaker.Name())
		}
		return
	}

	d.metrics.observe("failed")
	d.logger.Warn("notification delivery failed",
		"event_id", e.ID.String(),
		"type", string(e.Type),
		"error", err,
	)
	if _, change := d.breaker.RecordFailure(); change.Opened {
		d.sinceOpen = 0
		d.logger.Error("notification circuit opened, using fallback", "breaker", d.breaker.Name())
	}
	// A failed event is still handed to the fallback so it is not lost.
	d.metrics.incFallback()
	d.sendFallback(e)
}

func (d *Dispatcher) sendFallback(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.fallback.Notify(ctx, e); err != nil {
		d.logger.Error("fallback notification failed", "event_id", e.ID.String(), "error", err)
	}
}
