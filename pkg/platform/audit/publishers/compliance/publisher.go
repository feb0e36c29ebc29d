// Package compliance provides a fail-closed audit publisher for admin
// decisions.
//
// Events are written synchronously and the caller blocks until the write
// succeeds. If the write fails, an error is returned and the calling
// operation must fail.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "verity/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event. Returns an error if
// persistence fails; the caller must abort its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.UserID.IsNil() {
		return errors.New("compliance event requires UserID")
	}
	if event.Action == "" {
		return errors.New("compliance event requires Action")
	}
	event.Category = audit.CategoryCompliance
	audit.Prepare(&event, p.now())

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		p.logger.ErrorContext(ctx, "compliance audit failed",
			"action", event.Action,
			"user_id", event.UserID.String(),
			"error", err,
		)
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()
	return nil
}
