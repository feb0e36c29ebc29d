package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, registry clients and
// adapters return these (optionally wrapped) so the pipeline can translate
// them into result codes instead of string matching.
//
//   - ErrNotFound: record or registry entry does not exist
//   - ErrConflict: concurrent write lost an optimistic race
//   - ErrExpired: document or cached entry past its validity
//   - ErrInvalidState: transition not allowed from the current state
//   - ErrUnavailable: dependency temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
