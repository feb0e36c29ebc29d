// Package ports declares what the verification service needs from its
// collaborators, so adapters can be swapped at startup and mocked in tests.
package ports

import (
	"context"

	"verity/internal/notify"
	"verity/internal/ocr"
	"verity/internal/registry"
	id "verity/pkg/domain"
	"verity/pkg/platform/audit"
)

// DocumentReader turns uploaded document sides into text. It never fails.
type DocumentReader interface {
	ReadPair(ctx context.Context, front, back []byte) ocr.Result
}

// Reconciler checks a tax ID against external registries.
type Reconciler interface {
	Reconcile(ctx context.Context, req registry.Request) registry.Reconciliation
}

// Publisher hands notifications to an asynchronous dispatcher.
type Publisher interface {
	Publish(ctx context.Context, event notify.Event)
}

// ComplianceAuditor records admin decisions. A failed write must fail the
// admin action.
type ComplianceAuditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// OpsTracker records automatic pipeline activity on a best-effort basis.
type OpsTracker interface {
	Track(ctx context.Context, event audit.Event)
}

// AuditTrail reads back a user's audit events.
type AuditTrail interface {
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error)
}
