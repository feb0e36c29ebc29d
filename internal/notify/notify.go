// Package notify publishes verification status changes to downstream
// consumers (job matching, admin review queues). Delivery is best effort:
// the pipeline never waits for or fails on a notification.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened.
type EventType string

const (
	EventStatusChanged  EventType = "verification.status_changed"
	EventPendingReview  EventType = "verification.pending_review"
	EventManualDecision EventType = "verification.manual_decision"
)

// Event describes a change to one user's verification record.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	UserID        string    `json:"userId"`
	Verified      []string  `json:"verified,omitempty"`
	Pending       []string  `json:"pending,omitempty"`
	TrustScore    int       `json:"trustScore"`
	PreviousScore int       `json:"previousScore"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notifier delivers one event.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Closer is implemented by notifiers holding connections.
type Closer interface {
	Close() error
}
