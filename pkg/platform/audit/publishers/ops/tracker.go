// Package ops records automatic pipeline activity without ever blocking the
// pipeline. Events are sampled, buffered and flushed by a background loop;
// persistence failures are counted and logged, never returned.
package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "verity/pkg/platform/audit"
)

const (
	defaultFlushInterval = time.Second
	flushBatch           = 100
)

// Tracker is the fire-and-forget audit emitter.
type Tracker struct {
	store    audit.Store
	buf      *ringBuffer
	sampler  *Sampler
	metrics  *Metrics
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option { return func(t *Tracker) { t.logger = logger } }
func WithMetrics(m *Metrics) Option         { return func(t *Tracker) { t.metrics = m } }
func WithSampler(s *Sampler) Option         { return func(t *Tracker) { t.sampler = s } }

// WithBufferSize bounds the number of unflushed events.
func WithBufferSize(n int) Option { return func(t *Tracker) { t.buf = newRingBuffer(n) } }

// WithFlushInterval sets how often the buffer is flushed when idle.
func WithFlushInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// New starts a tracker. Close flushes what is left and stops it.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		buf:      newRingBuffer(0),
		sampler:  NewSampler(1),
		logger:   slog.New(slog.DiscardHandler),
		interval: defaultFlushInterval,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run()
	return t
}

// Track queues an event. It never blocks.
func (t *Tracker) Track(_ context.Context, event audit.Event) {
	if !t.sampler.Keep(event.Action) {
		t.metrics.incSampled()
		return
	}
	event.Category = audit.CategoryOperations
	audit.Prepare(&event, t.now())
	if t.buf.enqueue(event) {
		t.metrics.incDropped()
	}
	t.metrics.setBuffered(t.buf.len())
	if t.buf.len() >= flushBatch {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

func (t *Tracker) run() {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			t.flush()
			return
		case <-ticker.C:
			t.flush()
		case <-t.wake:
			t.flush()
		}
	}
}

// flush persists every buffered event. A detached context is used so a
// shutdown still drains the buffer.
func (t *Tracker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		batch := t.buf.dequeueBatch(flushBatch)
		if len(batch) == 0 {
			break
		}
		persisted := 0
		for _, e := range batch {
			if err := t.store.Append(ctx, e); err != nil {
				t.metrics.incPersistFailures()
				t.logger.WarnContext(ctx, "ops audit persist failed",
					"action", e.Action,
					"user_id", e.UserID.String(),
					"error", err,
				)
				continue
			}
			persisted++
		}
		t.metrics.incTracked(persisted)
	}
	t.metrics.setBuffered(t.buf.len())
}

// Flush forces a synchronous flush. Tests and batch runs use it.
func (t *Tracker) Flush() { t.flush() }

// Close stops the loop after a final flush.
func (t *Tracker) Close() error {
	t.once.Do(func() {
		close(t.stop)
		<-t.done
	})
	return nil
}
