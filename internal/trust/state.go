package trust

import (
	"fmt"

	"verity/pkg/platform/sentinel"
)

// State is a channel's verification state.
type State string

const (
	StateUnverified    State = "UNVERIFIED"
	StatePendingReview State = "PENDING_REVIEW"
	StateVerified      State = "VERIFIED"
	StateRejected      State = "REJECTED"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateUnverified, StatePendingReview, StateVerified, StateRejected:
		return true
	}
	return false
}

// AutoTransition returns the state an automatic pass may move to. Disallowed
// proposals leave the state unchanged; REJECTED is never left automatically.
func AutoTransition(from, proposed State) State {
	switch {
	case from == proposed:
		return from
	case from == StateUnverified && (proposed == StateVerified || proposed == StatePendingReview):
		return proposed
	case from == StateVerified && proposed == StatePendingReview:
		return proposed
	case from == StatePendingReview && proposed == StateVerified:
		return proposed
	default:
		return from
	}
}

// ManualTransition validates an admin move. Any state may go to VERIFIED,
// REJECTED or back to UNVERIFIED.
func ManualTransition(from, to State) (State, error) {
	switch to {
	case StateVerified, StateRejected, StateUnverified:
		return to, nil
	case StatePendingReview:
		if from == StatePendingReview {
			return to, nil
		}
	}
	return from, fmt.Errorf("manual transition %s -> %s: %w", from, to, sentinel.ErrInvalidState)
}
