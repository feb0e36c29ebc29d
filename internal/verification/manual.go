package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"verity/internal/notify"
	"verity/internal/trust"
	id "verity/pkg/domain"
	"verity/pkg/platform/audit"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

const defaultAuditLimit = 50

var errAudit = errors.New("compliance audit failed")

// ApplyManual applies an admin update. The compliance audit entry is written
// once per applied update. With a transactional store it shares the record's
// unit of work and a failed audit rolls the update back; with Redis it is
// written after the commit and a failure is reported but the update stays.
func (s *Service) ApplyManual(ctx context.Context, userID id.UserID, u *trust.ManualUpdate) (res Result) {
	start := time.Now()
	ctx, cancel, span := s.begin(ctx, "verification.apply_manual")
	defer cancel()
	defer span.End()

	res = newResult()
	defer func() { s.finish(ctx, opManual, span, &res, start) }()

	if u == nil {
		res.fail(FailureInvalidRequest, "Manual update is empty.")
		return res
	}
	span.SetAttributes(attribute.String("actor", u.Actor))

	unlock := s.aggregator.Lock(userID)
	defer unlock()
	now := requestcontext.Now(ctx)

	var before *trust.Record
	rec, err := s.aggregator.Manual(ctx, userID, u, now, func(ctx context.Context, prev, next *trust.Record) error {
		before = prev
		if s.compliance == nil {
			return nil
		}
		verified, pending := stateChanges(prev, next)
		event := audit.Event{
			UserID:      userID,
			ActorID:     u.Actor,
			Action:      string(manualAction(prev, next)),
			Channel:     joinNames(verified, pending, rejected(prev, next)),
			Decision:    fmt.Sprintf("score=%d", next.TrustScore),
			Reason:      u.Summary(),
			SubjectHash: s.hasher.Short(next.TaxID),
			RequestID:   requestID(ctx),
		}
		if err := s.compliance.Emit(ctx, event); err != nil {
			return fmt.Errorf("%w: %w", errAudit, err)
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "manual update failed",
			"request_id", requestID(ctx),
			"user_id", userID.String(),
			"actor", u.Actor,
			"error", err,
		)
		switch {
		case errors.Is(err, trust.ErrHookAfterCommit):
			res.Record = rec
			res.TrustScore = rec.TrustScore
			res.fail(FailureAudit, "The change was applied but could not be recorded in the audit trail.")
		case errors.Is(err, trust.ErrInvalidUpdate):
			res.fail(FailureInvalidRequest, strings.TrimPrefix(err.Error(), "apply manual update: "))
		case errors.Is(err, sentinel.ErrInvalidState):
			res.fail(FailureInvalidState, "The requested state change is not allowed.")
		case errors.Is(err, errAudit):
			res.fail(FailureAudit, "The change could not be recorded in the audit trail and was not applied.")
		default:
			res.fail(FailureStorage, msgStorage)
		}
		return res
	}

	res.Record = rec
	res.TrustScore = rec.TrustScore
	verified, pending := stateChanges(before, rec)
	res.Verified = verified
	res.Pending = pending
	res.say(fmt.Sprintf("Manual update applied: %s.", u.Summary()))

	scoreBefore := 0
	if before != nil {
		scoreBefore = before.TrustScore
	}
	s.publish(ctx, notify.Event{
		Type:          notify.EventManualDecision,
		UserID:        userID.String(),
		Verified:      channelNames(verified),
		Pending:       channelNames(pending),
		TrustScore:    rec.TrustScore,
		PreviousScore: scoreBefore,
		Message:       u.Summary(),
		OccurredAt:    now,
	})
	return res
}

// Status returns the user's record. Users without one get a fresh,
// unsaved unverified record.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*trust.Record, error) {
	rec, err := s.current(ctx, userID, requestcontext.Now(ctx))
	if err != nil {
		return nil, fmt.Errorf("load verification status: %w", err)
	}
	return rec, nil
}

// AuditTrail returns the user's audit events, most recent first.
func (s *Service) AuditTrail(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	if s.trail == nil {
		return []audit.Event{}, nil
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	events, err := s.trail.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// stateChanges lists channels that moved into VERIFIED or PENDING_REVIEW.
func stateChanges(before, after *trust.Record) (verified, pending []trust.Channel) {
	verified, pending = []trust.Channel{}, []trust.Channel{}
	for _, ch := range trust.Channels {
		from := trust.StateUnverified
		if before != nil {
			from = before.State(ch)
		}
		to := after.State(ch)
		if from == to {
			continue
		}
		switch to {
		case trust.StateVerified:
			verified = append(verified, ch)
		case trust.StatePendingReview:
			pending = append(pending, ch)
		}
	}
	return verified, pending
}

func rejected(before, after *trust.Record) []trust.Channel {
	var out []trust.Channel
	for _, ch := range trust.Channels {
		if after.State(ch) == trust.StateRejected && (before == nil || before.State(ch) != trust.StateRejected) {
			out = append(out, ch)
		}
	}
	return out
}

func manualAction(before, after *trust.Record) audit.AuditEvent {
	if len(rejected(before, after)) > 0 {
		return audit.EventManualReject
	}
	return audit.EventManualUpdate
}
