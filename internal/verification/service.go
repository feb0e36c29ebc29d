// Package verification orchestrates the pipeline: text extraction, field
// parsing, validation, registry reconciliation and trust aggregation. No
// operation returns an error; every outcome is reported in a Result.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"verity/internal/notify"
	"verity/internal/ocr"
	"verity/internal/registry"
	"verity/internal/trust"
	"verity/internal/verification/metrics"
	"verity/internal/verification/ports"
	id "verity/pkg/domain"
	"verity/pkg/platform/audit"
	"verity/pkg/platform/pii"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

const (
	defaultPipelineTimeout  = 60 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultBatchConcurrency = 4
)

const (
	opUpload  = "upload_document"
	opProfile = "evaluate_profile"
	opConfirm = "confirm_channel"
	opManual  = "apply_manual"
	opBatch   = "batch_auto_verify"
)

// Service runs the verification pipeline.
type Service struct {
	aggregator *trust.Aggregator
	reader     ports.DocumentReader
	reconciler ports.Reconciler
	publisher  ports.Publisher
	compliance ports.ComplianceAuditor
	ops        ports.OpsTracker
	trail      ports.AuditTrail
	hasher     *pii.Hasher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer

	pipelineTimeout  time.Duration
	writeTimeout     time.Duration
	batchConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithReader sets the document reader. Without one, uploads read
// placeholder text and always land in manual review.
func WithReader(r ports.DocumentReader) Option {
	return func(s *Service) { s.reader = r }
}

// WithReconciler enables registry checks.
func WithReconciler(r ports.Reconciler) Option {
	return func(s *Service) { s.reconciler = r }
}

func WithPublisher(p ports.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithComplianceAuditor records manual updates. Its failure fails the update.
func WithComplianceAuditor(a ports.ComplianceAuditor) Option {
	return func(s *Service) { s.compliance = a }
}

func WithOpsTracker(t ports.OpsTracker) Option {
	return func(s *Service) { s.ops = t }
}

func WithAuditTrail(t ports.AuditTrail) Option {
	return func(s *Service) { s.trail = t }
}

func WithHasher(h *pii.Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPipelineTimeout bounds one pipeline run, independent of the caller.
func WithPipelineTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pipelineTimeout = d
		}
	}
}

// WithBatchConcurrency bounds how many users a batch run evaluates at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New builds a Service around the trust aggregator.
func New(aggregator *trust.Aggregator, opts ...Option) *Service {
	s := &Service{
		aggregator:       aggregator,
		hasher:           pii.NewHasher(""),
		logger:           slog.New(slog.DiscardHandler),
		tracer:           otel.Tracer("verity/verification"),
		pipelineTimeout:  defaultPipelineTimeout,
		writeTimeout:     defaultWriteTimeout,
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reader == nil {
		s.reader = ocr.NewReader(nil, ocr.WithLogger(s.logger))
	}
	return s
}

// begin detaches the run from the caller's cancellation and bounds it with
// the service's own timeout.
func (s *Service) begin(ctx context.Context, name string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pipelineTimeout)
	ctx, span := s.tracer.Start(ctx, name)
	return ctx, cancel, span
}

// current returns the stored record, or a fresh one for unknown users.
func (s *Service) current(ctx context.Context, userID id.UserID, now time.Time) (*trust.Record, error) {
	rec, err := s.aggregator.Find(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return trust.NewRecord(userID, now), nil
	}
	return rec, err
}

// pend marks ch for review unless it is already verified.
func pend(ev *trust.Evidence, rec *trust.Record, ch trust.Channel, reason string) {
	if rec != nil && rec.State(ch) == trust.StateVerified {
		return
	}
	if ev.Pending == nil {
		ev.Pending = make(map[trust.Channel]string)
	}
	if _, ok := ev.Pending[ch]; !ok {
		ev.Pending[ch] = reason
	}
}

// reconcile runs the registries and folds the answer into ev.
func (s *Service) reconcile(ctx context.Context, req registry.Request, rec *trust.Record, ev *trust.Evidence, res *Result) {
	if s.reconciler == nil {
		return
	}
	recon := s.reconciler.Reconcile(ctx, req)
	res.Registry = recon.Results

	if hit, ok := recon.Confirmed(); ok {
		ev.CompanyConfirmed = true
		ev.CompanySources = []string{string(hit.Source)}
		if ev.CompanyName == "" && hit.Data != nil {
			ev.CompanyName = hit.Data.Name
		}
		return
	}

	switch {
	case recon.Blocked():
		pend(ev, rec, trust.ChannelCompany, "registry blocked")
		res.say(msgRegistryBlocked)
		s.track(ctx, audit.Event{
			UserID:      rec.UserID,
			Action:      string(audit.EventRegistryBlocked),
			Channel:     string(trust.ChannelCompany),
			Decision:    string(trust.StatePendingReview),
			SubjectHash: s.hasher.Short(req.TaxID),
		})
	case recon.Unavailable():
		pend(ev, rec, trust.ChannelCompany, "registry unavailable")
		res.say(msgRegistryDown)
	case inactive(recon):
		res.say(msgInactive)
	case len(recon.Results) > 0:
		res.say(msgNotFound)
	}
}

func inactive(recon registry.Reconciliation) bool {
	for _, r := range recon.Results {
		if r.Outcome == registry.OutcomeVerified && !r.Active {
			return true
		}
	}
	return false
}

// commit merges ev into the stored record and reports what changed. The
// write has its own deadline and still runs after the pipeline timed out.
func (s *Service) commit(ctx context.Context, userID id.UserID, ev trust.Evidence, now time.Time, res *Result, op string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	rec, changes, err := s.aggregator.Evaluate(writeCtx, userID, ev, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store verification evidence",
			"user_id", userID.String(),
			"operation", op,
			"error", err,
		)
		res.fail(FailureStorage, msgStorage)
		return
	}

	res.Record = rec
	res.TrustScore = rec.TrustScore
	if changes.Verified != nil {
		res.Verified = changes.Verified
	}
	if changes.Pending != nil {
		res.Pending = changes.Pending
	}
	for _, ch := range changes.Verified {
		s.metrics.IncTransition(string(ch), string(trust.StateVerified))
		switch ch {
		case trust.ChannelCompany:
			res.say(msgCompanyVerified)
		case trust.ChannelIDDocument:
			res.say(msgIDVerified)
		}
	}
	for _, ch := range changes.Pending {
		s.metrics.IncTransition(string(ch), string(trust.StatePendingReview))
	}

	if changes.Changed() {
		s.publish(ctx, notify.Event{
			Type:          eventType(changes),
			UserID:        userID.String(),
			Verified:      channelNames(changes.Verified),
			Pending:       channelNames(changes.Pending),
			TrustScore:    changes.ScoreAfter,
			PreviousScore: changes.ScoreBefore,
			OccurredAt:    now,
		})
	}

	decision := "unchanged"
	switch {
	case len(changes.Verified) > 0:
		decision = string(trust.StateVerified)
	case len(changes.Pending) > 0:
		decision = string(trust.StatePendingReview)
	}
	action := audit.EventAutoEvaluated
	if op == opUpload {
		action = audit.EventDocumentProcessed
	}
	s.track(ctx, audit.Event{
		UserID:      userID,
		Action:      string(action),
		Channel:     joinNames(changes.Verified, changes.Pending),
		Decision:    decision,
		SubjectHash: s.hasher.Short(rec.TaxID),
	})
}

func eventType(c trust.Changes) notify.EventType {
	if len(c.Verified) == 0 && len(c.Pending) > 0 {
		return notify.EventPendingReview
	}
	return notify.EventStatusChanged
}

func (s *Service) publish(ctx context.Context, e notify.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, e)
	}
}

func (s *Service) track(ctx context.Context, e audit.Event) {
	if s.ops == nil {
		return
	}
	if e.RequestID == "" {
		e.RequestID = requestID(ctx)
	}
	s.ops.Track(ctx, e)
}

// finish records metrics, closes the span and settles Success.
func (s *Service) finish(ctx context.Context, op string, span trace.Span, res *Result, start time.Time) {
	if res.Failure == FailureNone && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.fail(FailureTimeout, msgTimeout)
	}
	res.Success = res.Failure == FailureNone

	outcome := "unchanged"
	switch {
	case !res.Success:
		outcome = "failed"
		span.SetStatus(codes.Error, string(res.Failure))
	case len(res.Verified) > 0:
		outcome = "verified"
	case len(res.Pending) > 0:
		outcome = "pending"
	}
	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("trust_score", res.TrustScore),
	)
	s.metrics.ObservePipeline(op, outcome, time.Since(start))
	s.logger.InfoContext(ctx, "verification pipeline finished",
		"request_id", requestID(ctx),
		"operation", op,
		"outcome", outcome,
		"failure", string(res.Failure),
		"trust_score", res.TrustScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func channelNames(chs []trust.Channel) []string {
	out := make([]string, len(chs))
	for i, ch := range chs {
		out[i] = string(ch)
	}
	return out
}

func joinNames(groups ...[]trust.Channel) string {
	var out string
	for _, g := range groups {
		for _, ch := range g {
			if out != "" {
				out += ","
			}
			out += string(ch)
		}
	}
	return out
}

func requestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
