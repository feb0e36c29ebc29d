// Package audit records who changed a verification record, when and why.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "verity/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so
// retention and delivery guarantees can differ.
type EventCategory string

const (
	// CategoryCompliance covers admin decisions. These are written
	// synchronously and the admin action fails if the write fails.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers automatic pipeline activity. These are
	// buffered, may be sampled and are dropped under pressure.
	CategoryOperations EventCategory = "operations"
)

// Event is one audit line.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// ActorID is the admin subject for manual actions, empty for automatic ones.
	ActorID string
	Action  string
	Channel string
	// Decision is the outcome, e.g. a channel state or "pending".
	Decision string
	Reason   string
	// SubjectHash is a keyed hash of the tax ID involved, never the raw value.
	SubjectHash string
	RequestID   string
}

type AuditEvent string

const (
	EventDocumentProcessed AuditEvent = "document_processed"
	EventAutoEvaluated     AuditEvent = "auto_evaluated"
	EventChannelConfirmed  AuditEvent = "channel_confirmed"
	EventRegistryBlocked   AuditEvent = "registry_blocked"
	EventBatchCompleted    AuditEvent = "batch_completed"

	EventManualUpdate AuditEvent = "manual_update"
	EventManualReject AuditEvent = "manual_reject"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventManualUpdate: CategoryCompliance,
	EventManualReject: CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListByUser returns the user's events, most recent first.
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]Event, error)
}

// Prepare fills the ID, category and timestamp when the caller left them empty.
func Prepare(e *Event, now time.Time) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Category == "" {
		e.Category = AuditEvent(e.Action).Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}
