// Package store holds trust.Store implementations.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"verity/internal/trust"
	id "verity/pkg/domain"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// InMemory keeps records in a map guarded by one mutex. Records are cloned
// on the way in and out.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.UserID]*trust.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.UserID]*trust.Record)}
}

func (s *InMemory) Find(_ context.Context, userID id.UserID) (*trust.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) Apply(ctx context.Context, userID id.UserID, fn trust.MutateFunc) (*trust.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *trust.Record
	if existing, ok := s.records[userID]; ok {
		rec = existing.Clone()
	} else {
		rec = trust.NewRecord(userID, requestcontext.Now(ctx))
	}
	if err := fn(ctx, rec); err != nil {
		return nil, err
	}
	rec.Version++
	s.records[userID] = rec.Clone()
	return rec, nil
}

func (s *InMemory) FindByTaxID(_ context.Context, taxID string) (*trust.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *trust.Record
	for _, rec := range s.records {
		if rec.TaxID != taxID {
			continue
		}
		// Prefer a confirmed record when several users declared the same ID.
		if found == nil || (rec.CompanyVerified && !found.CompanyVerified) {
			found = rec
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found.Clone(), nil
}

func (s *InMemory) IsCompanyVerified(ctx context.Context, taxID string) (bool, error) {
	if taxID == "" {
		return false, nil
	}
	rec, err := s.FindByTaxID(ctx, taxID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.CompanyVerified, nil
}

func (s *InMemory) ListUnverified(_ context.Context, limit int) ([]*trust.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*trust.Record, 0)
	for _, rec := range s.records {
		if trust.Unverified(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
