package verification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"verity/internal/document"
	"verity/internal/registry"
	"verity/internal/trust"
	"verity/internal/validation"
	id "verity/pkg/domain"
	"verity/pkg/platform/audit"
	"verity/pkg/requestcontext"
)

// EvaluateProfile runs the automatic pass for changed profile fields: it
// validates the declared tax ID, reconciles it against the registries and
// merges whatever was confirmed.
func (s *Service) EvaluateProfile(ctx context.Context, req ProfileRequest) (res Result) {
	start := time.Now()
	ctx, cancel, span := s.begin(ctx, "verification.evaluate_profile")
	defer cancel()
	defer span.End()

	res = newResult()
	defer func() { s.finish(ctx, opProfile, span, &res, start) }()

	unlock := s.aggregator.Lock(req.UserID)
	defer unlock()

	s.evaluateProfile(ctx, req, requestcontext.Now(ctx), &res)
	return res
}

// evaluateProfile is the pass itself. The caller holds the user's lock.
func (s *Service) evaluateProfile(ctx context.Context, req ProfileRequest, now time.Time, res *Result) {
	rec, err := s.current(ctx, req.UserID, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load verification record",
			"user_id", req.UserID.String(),
			"error", err,
		)
		res.fail(FailureStorage, msgStorage)
		return
	}

	ev := trust.Evidence{
		CompanyName: strings.TrimSpace(req.CompanyName),
		LegalStatus: strings.TrimSpace(req.LegalStatus),
		Profession:  strings.TrimSpace(req.Profession),
	}

	taxID := strings.TrimSpace(req.TaxID)
	if taxID != "" {
		val := validation.Result{Valid: true, Errors: []validation.Issue{}, Warnings: []validation.Issue{}}
		ev.TaxIDValid = validation.ValidOIB(taxID)
		if ev.TaxIDValid {
			ev.TaxID = taxID
		} else {
			val.Valid = false
			val.Errors = append(val.Errors, validation.Issue{
				Code:    validation.CodeChecksumInvalid,
				Field:   document.FieldTaxID,
				Message: "Declared OIB is not valid.",
			})
			res.fail(FailureInvalidRequest, msgChecksum)
		}
		res.Validation = &val
	}

	if ev.TaxIDValid {
		legalStatus := firstNonEmpty(ev.LegalStatus, rec.LegalStatus)
		profession := firstNonEmpty(ev.Profession, rec.Profession)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("legal_status", legalStatus))
		s.reconcile(ctx, registry.Request{
			TaxID:       taxID,
			Name:        firstNonEmpty(ev.CompanyName, rec.CompanyName),
			LegalStatus: legalStatus,
			Profession:  registry.Profession(profession),
		}, rec, &ev, res)
	}

	s.commit(ctx, req.UserID, ev, now, res, opProfile)
}

// ConfirmChannel records an email or phone confirmation performed elsewhere.
func (s *Service) ConfirmChannel(ctx context.Context, userID id.UserID, channel trust.Channel) (res Result) {
	start := time.Now()
	ctx, cancel, span := s.begin(ctx, "verification.confirm_channel")
	defer cancel()
	defer span.End()
	span.SetAttributes(attribute.String("channel", string(channel)))

	res = newResult()
	defer func() { s.finish(ctx, opConfirm, span, &res, start) }()

	var ev trust.Evidence
	switch channel {
	case trust.ChannelEmail:
		ev.EmailVerified = true
	case trust.ChannelPhone:
		ev.PhoneVerified = true
	default:
		res.fail(FailureInvalidRequest, "Only email and phone can be confirmed directly.")
		return res
	}

	unlock := s.aggregator.Lock(userID)
	defer unlock()

	s.commit(ctx, userID, ev, requestcontext.Now(ctx), &res, opConfirm)
	if res.Failure == FailureNone {
		s.track(ctx, audit.Event{
			UserID:   userID,
			Action:   string(audit.EventChannelConfirmed),
			Channel:  string(channel),
			Decision: string(res.Record.State(channel)),
		})
	}
	return res
}

// BatchAutoVerify re-runs the automatic pass for users with a tax ID whose
// company is not confirmed yet, least recently updated first. limit is
// capped at MaxBatchSize.
func (s *Service) BatchAutoVerify(ctx context.Context, limit int) BatchReport {
	start := time.Now()
	ctx, cancel, span := s.begin(ctx, "verification.batch_auto_verify")
	defer cancel()
	defer span.End()

	if limit <= 0 || limit > MaxBatchSize {
		limit = MaxBatchSize
	}
	report := BatchReport{Requested: limit, Items: []BatchItem{}}

	// One timestamp for the whole batch.
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	records, err := s.aggregator.ListUnverified(ctx, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list unverified records", "error", err)
		s.metrics.ObservePipeline(opBatch, "failed", time.Since(start))
		report.Failed = 1
		return report
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for _, rec := range records {
		g.Go(func() error {
			res := newResult()
			unlock := s.aggregator.Lock(rec.UserID)
			s.evaluateProfile(gctx, ProfileRequest{
				UserID:      rec.UserID,
				TaxID:       rec.TaxID,
				CompanyName: rec.CompanyName,
				LegalStatus: rec.LegalStatus,
				Profession:  rec.Profession,
			}, now, &res)
			unlock()

			item := BatchItem{
				UserID:     rec.UserID,
				Verified:   res.Verified,
				Pending:    res.Pending,
				TrustScore: res.TrustScore,
				Failure:    res.Failure,
			}
			mu.Lock()
			defer mu.Unlock()
			report.Items = append(report.Items, item)
			return nil
		})
	}
	_ = g.Wait()

	report.Processed = len(report.Items)
	for _, item := range report.Items {
		switch {
		case item.Failure != FailureNone:
			report.Failed++
		case len(item.Verified) > 0:
			report.Verified++
		case len(item.Pending) > 0:
			report.Pending++
		}
	}

	span.SetAttributes(
		attribute.Int("processed", report.Processed),
		attribute.Int("verified", report.Verified),
	)
	s.metrics.ObservePipeline(opBatch, "success", time.Since(start))
	s.track(ctx, audit.Event{
		Action:   string(audit.EventBatchCompleted),
		Decision: "completed",
		Reason:   batchReason(report),
	})
	s.logger.InfoContext(ctx, "batch auto-verification finished",
		"request_id", requestID(ctx),
		"processed", report.Processed,
		"verified", report.Verified,
		"pending", report.Pending,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report
}

func batchReason(r BatchReport) string {
	return fmt.Sprintf("processed=%d verified=%d pending=%d failed=%d", r.Processed, r.Verified, r.Pending, r.Failed)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
