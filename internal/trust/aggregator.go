package trust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	id "verity/pkg/domain"
	"verity/pkg/platform/keylock"
)

// Aggregator is the single writer of trust scores. It serializes work per
// user in-process on top of the store's own atomic Apply.
type Aggregator struct {
	store  Store
	locks  *keylock.Map
	logger *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// NewAggregator wraps store.
func NewAggregator(store Store, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:  store,
		locks:  keylock.New(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lock holds the user's in-process lock until the returned func is called.
// Callers use it to serialize a whole pipeline run, not just the write.
func (a *Aggregator) Lock(userID id.UserID) func() {
	return a.locks.Lock(userID.String())
}

// Evaluate merges an automatic pass. The caller must hold Lock(userID).
func (a *Aggregator) Evaluate(ctx context.Context, userID id.UserID, ev Evidence, now time.Time) (*Record, Changes, error) {
	var changes Changes
	rec, err := a.store.Apply(ctx, userID, func(_ context.Context, r *Record) error {
		changes = Merge(r, ev, now)
		return nil
	})
	if err != nil {
		return nil, Changes{}, fmt.Errorf("merge evidence: %w", err)
	}
	if changes.Changed() {
		a.logger.InfoContext(ctx, "trust record updated",
			"user_id", userID.String(),
			"verified", joinChannels(changes.Verified),
			"pending", joinChannels(changes.Pending),
			"score_before", changes.ScoreBefore,
			"score_after", changes.ScoreAfter,
		)
	}
	return rec, changes, nil
}

// RecordHook observes a manual change. Returning an error aborts the write
// when the hook runs in the store's unit of work.
type RecordHook func(ctx context.Context, before, after *Record) error

// ErrHookAfterCommit marks a hook failure on an optimistic store. The record
// was already written when it is returned.
var ErrHookAfterCommit = errors.New("record hook failed after commit")

// Manual applies an admin update. The caller must hold Lock(userID). hook,
// when not nil, runs exactly once: in the same unit of work as the write, or
// after the commit when the store is Optimistic.
func (a *Aggregator) Manual(ctx context.Context, userID id.UserID, u *ManualUpdate, now time.Time, hook RecordHook) (*Record, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	deferHook := hook != nil && retriesMutate(a.store)

	var before *Record
	rec, err := a.store.Apply(ctx, userID, func(ctx context.Context, r *Record) error {
		before = r.Clone()
		if err := ApplyManual(r, u, now); err != nil {
			return err
		}
		if hook != nil && !deferHook {
			return hook(ctx, before, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply manual update: %w", err)
	}
	a.logger.InfoContext(ctx, "trust record manually updated",
		"user_id", userID.String(),
		"actor", u.Actor,
		"summary", u.Summary(),
		"score", rec.TrustScore,
	)
	if deferHook {
		if err := hook(ctx, before, rec.Clone()); err != nil {
			return rec, fmt.Errorf("%w: %w", ErrHookAfterCommit, err)
		}
	}
	return rec, nil
}

// Find returns the user's record.
func (a *Aggregator) Find(ctx context.Context, userID id.UserID) (*Record, error) {
	return a.store.Find(ctx, userID)
}

// ListUnverified returns records that still wait for a company confirmation.
func (a *Aggregator) ListUnverified(ctx context.Context, limit int) ([]*Record, error) {
	return a.store.ListUnverified(ctx, limit)
}

// FindByTaxID returns the record holding taxID.
func (a *Aggregator) FindByTaxID(ctx context.Context, taxID string) (*Record, error) {
	return a.store.FindByTaxID(ctx, taxID)
}
