package trust

import (
	"context"

	id "verity/pkg/domain"
)

// MutateFunc changes a record inside a store's atomic read-modify-write.
// Returning an error aborts the write. ctx may carry the store's
// transaction so collaborators can write in the same unit of work.
type MutateFunc func(ctx context.Context, rec *Record) error

// Store persists verification records.
//
// Apply is the only write path: it loads the record (creating an empty one
// if missing), runs fn and writes the result atomically with respect to
// other Apply calls for the same user. Find returns sentinel.ErrNotFound
// for unknown users.
type Store interface {
	Find(ctx context.Context, userID id.UserID) (*Record, error)
	Apply(ctx context.Context, userID id.UserID, fn MutateFunc) (*Record, error)
	FindByTaxID(ctx context.Context, taxID string) (*Record, error)
	IsCompanyVerified(ctx context.Context, taxID string) (bool, error)
	// ListUnverified returns records with a tax ID but no company
	// confirmation, least recently updated first.
	ListUnverified(ctx context.Context, limit int) ([]*Record, error)
}

// Optimistic is implemented by stores whose Apply may run fn more than once
// when a concurrent writer wins the race. fn must stay free of side effects
// for these stores; the aggregator runs record hooks after the commit instead.
type Optimistic interface {
	Optimistic() bool
}

func retriesMutate(s Store) bool {
	o, ok := s.(Optimistic)
	return ok && o.Optimistic()
}

// Unverified reports whether ListUnverified should return r.
func Unverified(r *Record) bool {
	return r.TaxID != "" && !r.CompanyVerified
}
