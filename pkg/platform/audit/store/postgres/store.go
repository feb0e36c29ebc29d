package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "verity/pkg/domain"
	audit "verity/pkg/platform/audit"
	txcontext "verity/pkg/platform/tx"
)

const eventColumns = `id, category, occurred_at, user_id, actor_id, action,
	channel, decision, reason, subject_hash, request_id`

// Store implements audit.Store on the audit_events table. Appends join a
// transaction carried in the context, so manual record updates and their
// audit line commit together.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an event. Idempotent on the event ID.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	audit.Prepare(&event, time.Now())
	query := `INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	var userID *uuid.UUID
	if !event.UserID.IsNil() {
		uid := uuid.UUID(event.UserID)
		userID = &uid
	}

	_, err := txcontext.ExecerFrom(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		userID,
		event.ActorID,
		event.Action,
		event.Channel,
		event.Decision,
		event.Reason,
		event.SubjectHash,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns the user's events, most recent first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + eventColumns + ` FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	events := []audit.Event{}
	for rows.Next() {
		var (
			event    audit.Event
			category string
			userID   *uuid.UUID
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&userID,
			&event.ActorID,
			&event.Action,
			&event.Channel,
			&event.Decision,
			&event.Reason,
			&event.SubjectHash,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if userID != nil {
			event.UserID = id.UserID(*userID)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
