package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"verity/internal/registry/metrics"
	"verity/internal/validation/oib"
	"verity/pkg/platform/pii"
	"verity/pkg/platform/sentinel"
)

// Request describes the entity to reconcile.
type Request struct {
	TaxID       string
	Name        string
	LegalStatus string
	Profession  Profession
}

// Reconciliation is every registry answer in priority order.
type Reconciliation struct {
	Results []CheckResult `json:"results"`
}

// Confirmed returns the highest-priority result that found an active entity.
func (r Reconciliation) Confirmed() (CheckResult, bool) {
	for _, res := range r.Results {
		if res.Confirmed() {
			return res, true
		}
	}
	return CheckResult{}, false
}

// Blocked reports whether any registry answered with an anti-automation challenge.
func (r Reconciliation) Blocked() bool {
	for _, res := range r.Results {
		if res.Blocked {
			return true
		}
	}
	return false
}

// Unavailable reports whether any registry could not give an answer.
func (r Reconciliation) Unavailable() bool {
	for _, res := range r.Results {
		if res.Outcome == OutcomeError || res.Note == NoteUnavailable {
			return true
		}
	}
	return false
}

// Reconciler queries the configured registries. Distinct registries are
// independent and run concurrently; each checker is sequential inside.
type Reconciler struct {
	company  Checker
	trade    Checker
	chambers map[Profession]Checker
	vat      Checker
	cache    Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger
	hasher   *pii.Hasher
	tracer   trace.Tracer
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithCompany(c Checker) ReconcilerOption { return func(r *Reconciler) { r.company = c } }
func WithTrade(c Checker) ReconcilerOption   { return func(r *Reconciler) { r.trade = c } }
func WithVAT(c Checker) ReconcilerOption     { return func(r *Reconciler) { r.vat = c } }

// WithChamber registers the chamber checker for a profession.
func WithChamber(p Profession, c Checker) ReconcilerOption {
	return func(r *Reconciler) { r.chambers[p] = c }
}

func WithCache(c Cache) ReconcilerOption { return func(r *Reconciler) { r.cache = c } }

func WithMetrics(m *metrics.Metrics) ReconcilerOption { return func(r *Reconciler) { r.metrics = m } }

func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = l }
}

// WithHasher sets the hasher used to log tax IDs.
func WithHasher(h *pii.Hasher) ReconcilerOption { return func(r *Reconciler) { r.hasher = h } }

// NewReconciler builds a Reconciler. Registries that are not configured are
// simply not consulted.
func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		chambers: make(map[Profession]Checker),
		logger:   slog.New(slog.DiscardHandler),
		hasher:   pii.NewHasher(""),
		tracer:   otel.Tracer("verity/registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs every applicable registry and returns their results in
// priority order: company, trade, chamber, VAT.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) Reconciliation {
	ctx, span := r.tracer.Start(ctx, "registry.reconcile")
	defer span.End()

	if !oib.Valid(req.TaxID) {
		span.SetAttributes(attribute.Bool("registry.skipped", true))
		return Reconciliation{Results: []CheckResult{}}
	}

	checkers := r.applicable(req)
	results := make([]CheckResult, len(checkers))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = r.check(gctx, c, req)
			return nil
		})
	}
	_ = g.Wait() // checks report failures as results

	sort.SliceStable(results, func(i, j int) bool {
		return priority[results[i].Source] < priority[results[j].Source]
	})

	out := Reconciliation{Results: results}
	confirmed, ok := out.Confirmed()
	span.SetAttributes(
		attribute.Int("registry.checked", len(results)),
		attribute.Bool("registry.confirmed", ok),
	)
	r.logger.InfoContext(ctx, "registry reconciliation finished",
		"tax_id_hash", r.hasher.Short(req.TaxID),
		"checked", len(results),
		"confirmed", ok,
		"confirmed_by", string(confirmed.Source),
		"blocked", out.Blocked(),
	)
	return out
}

func (r *Reconciler) applicable(req Request) []Checker {
	kind := classify(req.LegalStatus)
	var out []Checker
	if r.company != nil && (kind == entityUnknown || kind == entityCompany) {
		out = append(out, r.company)
	}
	if r.trade != nil && (kind == entityUnknown || kind == entityTrade) {
		out = append(out, r.trade)
	}
	if c, ok := r.chambers[req.Profession]; ok && c != nil {
		out = append(out, c)
	}
	if r.vat != nil {
		out = append(out, r.vat)
	}
	return out
}

func (r *Reconciler) check(ctx context.Context, c Checker, req Request) CheckResult {
	src := c.Source()
	ctx, span := r.tracer.Start(ctx, "registry.check", trace.WithAttributes(attribute.String("registry.source", string(src))))
	defer span.End()

	if cached, ok := r.cached(ctx, src, req.TaxID); ok {
		span.SetAttributes(attribute.Bool("registry.cache_hit", true))
		return cached
	}

	start := time.Now()
	res := c.Check(ctx, req.TaxID, req.Name)
	r.metrics.ObserveLookup(string(src), outcomeLabel(res), time.Since(start))
	span.SetAttributes(attribute.String("registry.outcome", string(res.Outcome)))

	if res.Err != nil {
		r.logger.WarnContext(ctx, "registry lookup failed",
			"source", string(src),
			"category", string(res.Err.Category),
			"error", res.Err,
		)
	}
	if r.cache != nil && res.Cacheable() {
		if err := r.cache.Save(ctx, req.TaxID, res); err != nil {
			r.logger.WarnContext(ctx, "registry cache save failed", "source", string(src), "error", err)
		}
	}
	return res
}

func (r *Reconciler) cached(ctx context.Context, src Source, taxID string) (CheckResult, bool) {
	if r.cache == nil {
		return CheckResult{}, false
	}
	res, err := r.cache.Find(ctx, src, taxID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "registry cache lookup failed", "source", string(src), "error", err)
		}
		r.metrics.RecordCacheMiss(string(src))
		return CheckResult{}, false
	}
	r.metrics.RecordCacheHit(string(src))
	res.Cached = true
	return *res, true
}

func outcomeLabel(res CheckResult) string {
	if res.Blocked {
		return "blocked"
	}
	return string(res.Outcome)
}

type entityKind int

const (
	entityUnknown entityKind = iota
	entityCompany
	entityTrade
	entityIndividual
)

// classify maps a declared legal status to the registry that keeps it.
func classify(legalStatus string) entityKind {
	s := strings.ToUpper(strings.NewReplacer(".", "", " ", "", "-", "", "_", "").Replace(legalStatus))
	switch {
	case s == "":
		return entityUnknown
	case s == "DOO" || s == "JDOO" || s == "DD" || s == "COMPANY":
		return entityCompany
	case strings.Contains(s, "OBRT") || s == "SOLETRADER" || strings.HasPrefix(s, "PAUSAL") || strings.HasPrefix(s, "PAUŠAL"):
		return entityTrade
	case s == "FREELANCER" || s == "INDIVIDUAL":
		return entityIndividual
	default:
		return entityUnknown
	}
}
