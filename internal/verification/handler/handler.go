package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"verity/internal/document"
	platformmetrics "verity/internal/platform/metrics"
	ratelimit "verity/internal/ratelimit/models"
	"verity/internal/trust"
	"verity/internal/validation"
	"verity/internal/verification"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/audit"
	"verity/pkg/platform/httputil"
	"verity/pkg/requestcontext"
)

const defaultMaxUpload = 10 << 20

// Service defines the verification operations exposed over HTTP.
type Service interface {
	UploadDocument(ctx context.Context, req verification.UploadRequest) verification.Result
	EvaluateProfile(ctx context.Context, req verification.ProfileRequest) verification.Result
	ConfirmChannel(ctx context.Context, userID id.UserID, channel trust.Channel) verification.Result
	ApplyManual(ctx context.Context, userID id.UserID, u *trust.ManualUpdate) verification.Result
	BatchAutoVerify(ctx context.Context, limit int) verification.BatchReport
	Status(ctx context.Context, userID id.UserID) (*trust.Record, error)
	AuditTrail(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error)
}

// Handler wires verification endpoints to the service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	metrics   *platformmetrics.Metrics
	maxUpload int64
	limit     func(ratelimit.Class) func(http.Handler) http.Handler
}

// New constructs a verification handler. maxUpload bounds the multipart
// body of document uploads; zero selects 10 MiB.
func New(service Service, logger *slog.Logger, metrics *platformmetrics.Metrics, maxUpload int64) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{service: service, logger: logger, metrics: metrics, maxUpload: maxUpload}
}

// WithRateLimit applies per-class quotas to the routes mounted afterwards.
func (h *Handler) WithRateLimit(limit func(ratelimit.Class) func(http.Handler) http.Handler) *Handler {
	h.limit = limit
	return h
}

func (h *Handler) limited(class ratelimit.Class) func(http.Handler) http.Handler {
	if h.limit == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limit(class)
}

// RegisterUser mounts the endpoints for authenticated users.
func (h *Handler) RegisterUser(r chi.Router) {
	r.With(h.limited(ratelimit.ClassDocument)).Post("/verification/documents", h.HandleUpload)
	r.With(h.limited(ratelimit.ClassProfile)).Post("/verification/profile", h.HandleProfile)
	r.With(h.limited(ratelimit.ClassRead)).Get("/verification/status", h.HandleStatus)
}

// RegisterAdmin mounts the admin endpoints. The router must enforce the
// admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.limited(ratelimit.ClassAdmin))
		r.Post("/admin/verification/batch", h.HandleBatch)
		r.Post("/admin/verification/{userID}", h.HandleManual)
		r.Post("/admin/verification/{userID}/channels/{channel}", h.HandleConfirmChannel)
		r.Get("/admin/verification/{userID}/audit", h.HandleAuditTrail)
	})
}

// HandleUpload handles POST /verification/documents.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeTooLarge, "document is too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart form expected"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	front, err := readPart(r.MultipartForm, "front")
	if err != nil || len(front) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "front image is required"))
		return
	}
	back, err := readPart(r.MultipartForm, "back")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "back image could not be read"))
		return
	}

	docType := document.TypeRPOSolution
	if raw := strings.TrimSpace(r.FormValue("documentType")); raw != "" {
		parsed, ok := document.ParseType(raw)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "documentType must be RPO_SOLUTION, LICENSE or ID_CARD"))
			return
		}
		docType = parsed
	}
	h.metrics.ObserveUpload(int64(len(front) + len(back)))

	start := time.Now()
	res := h.service.UploadDocument(ctx, verification.UploadRequest{
		UserID:       userID,
		DocumentType: docType,
		Front:        front,
		Back:         back,
		Declared: validation.Declared{
			TaxID:    strings.TrimSpace(r.FormValue("declaredTaxId")),
			FullName: strings.TrimSpace(r.FormValue("declaredName")),
		},
	})

	h.logger.InfoContext(ctx, "document processed",
		"request_id", requestID,
		"user_id", userID.String(),
		"document_type", string(docType),
		"success", res.Success,
		"trust_score", res.TrustScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, statusFor(res), res)
}

// HandleProfile handles POST /verification/profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeJSON[ProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res := h.service.EvaluateProfile(ctx, req.toDomain(userID))
	httputil.WriteJSON(w, statusFor(res), res)
}

// HandleStatus handles GET /verification/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	rec, err := h.service.Status(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load verification status",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification status unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleManual handles POST /admin/verification/{userID}.
func (h *Handler) HandleManual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeJSON[ManualRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := requestcontext.ActorFrom(ctx)
	res := h.service.ApplyManual(ctx, userID, req.toUpdate(actor.Subject))
	h.logger.InfoContext(ctx, "manual verification update",
		"request_id", requestID,
		"user_id", userID.String(),
		"actor", actor.Subject,
		"success", res.Success,
		"failure", string(res.Failure),
	)
	httputil.WriteJSON(w, statusFor(res), res)
}

// HandleConfirmChannel handles POST /admin/verification/{userID}/channels/{channel}.
func (h *Handler) HandleConfirmChannel(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	channel := trust.Channel(chi.URLParam(r, "channel"))
	if channel != trust.ChannelEmail && channel != trust.ChannelPhone {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "channel must be email or phone"))
		return
	}
	res := h.service.ConfirmChannel(r.Context(), userID, channel)
	httputil.WriteJSON(w, statusFor(res), res)
}

// HandleBatch handles POST /admin/verification/batch.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := verification.MaxBatchSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > verification.MaxBatchSize {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	report := h.service.BatchAutoVerify(ctx, limit)
	h.logger.InfoContext(ctx, "batch auto-verification requested",
		"request_id", requestcontext.RequestID(ctx),
		"actor", requestcontext.ActorFrom(ctx).Subject,
		"processed", report.Processed,
		"verified", report.Verified,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleAuditTrail handles GET /admin/verification/{userID}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := h.service.AuditTrail(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func pathUserID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, false
	}
	return userID, true
}

func readPart(form *multipart.Form, field string) ([]byte, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// statusFor maps a pipeline result to an HTTP status. A document that was
// read but failed validation is still a 200: the findings are the answer.
func statusFor(res verification.Result) int {
	switch res.Failure {
	case verification.FailureNone, verification.FailureDocumentBlocked:
		return http.StatusOK
	case verification.FailureInvalidRequest:
		return http.StatusUnprocessableEntity
	case verification.FailureInvalidState:
		return http.StatusConflict
	case verification.FailureTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
