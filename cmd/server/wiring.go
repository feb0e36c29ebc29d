package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verity/internal/notify"
	"verity/internal/ocr"
	"verity/internal/platform/config"
	platformmetrics "verity/internal/platform/metrics"
	"verity/internal/platform/middleware"
	"verity/internal/platform/postgres"
	"verity/internal/platform/redis"
	ratelimitmetrics "verity/internal/ratelimit/metrics"
	ratelimitmw "verity/internal/ratelimit/middleware"
	ratelimitmodels "verity/internal/ratelimit/models"
	"verity/internal/ratelimit/store/bucket"
	"verity/internal/registry"
	registrymetrics "verity/internal/registry/metrics"
	"verity/internal/trust"
	trustStore "verity/internal/trust/store"
	"verity/internal/verification"
	verificationHandler "verity/internal/verification/handler"
	verificationmetrics "verity/internal/verification/metrics"
	"verity/pkg/platform/audit"
	"verity/pkg/platform/audit/publishers/compliance"
	"verity/pkg/platform/audit/publishers/ops"
	auditmemory "verity/pkg/platform/audit/store/memory"
	auditpostgres "verity/pkg/platform/audit/store/postgres"
	"verity/pkg/platform/circuit"
	"verity/pkg/platform/httputil"
	"verity/pkg/platform/pii"
)

const (
	kafkaPartitions  = 3
	kafkaReplication = 1
	notifyFailures   = 5
)

type application struct {
	router  http.Handler
	closers []func(context.Context) error
}

func (a *application) close(log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn("failed to release resource", "error", err)
		}
	}
}

func (a *application) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// build constructs every dependency from configuration. Anything it opens is
// registered on the application so close releases it in reverse order.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.close(log)
		}
	}()

	hasher := pii.NewHasher(cfg.Server.PIIHashKey)

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		app.onClose(func(context.Context) error { return db.Close() })
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(cfg.Postgres.DSN); err != nil {
				return nil, err
			}
		}
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		app.onClose(func(context.Context) error { return rdb.Close() })
	}

	records, err := recordStore(cfg.Server.Store, db, rdb, hasher)
	if err != nil {
		return nil, err
	}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		auditStore = auditpostgres.New(db)
	}
	auditor := compliance.New(auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(prometheus.DefaultRegisterer)),
	)
	tracker := ops.New(auditStore,
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics(prometheus.DefaultRegisterer)),
	)
	app.onClose(func(context.Context) error { return tracker.Close() })

	recognizer, err := newRecognizer(ctx, cfg.OCR)
	if err != nil {
		return nil, err
	}
	reader := ocr.NewReader(recognizer, ocr.WithLogger(log))

	reconciler := newReconciler(cfg.Registry, records, rdb, hasher, log)

	dispatcher, err := newDispatcher(ctx, cfg.Notify, log)
	if err != nil {
		return nil, err
	}
	app.onClose(dispatcher.close)

	service := verification.New(trust.NewAggregator(records, trust.WithLogger(log)),
		verification.WithReader(reader),
		verification.WithReconciler(reconciler),
		verification.WithPublisher(dispatcher.Dispatcher),
		verification.WithComplianceAuditor(auditor),
		verification.WithOpsTracker(tracker),
		verification.WithAuditTrail(auditStore),
		verification.WithHasher(hasher),
		verification.WithMetrics(verificationmetrics.New()),
		verification.WithLogger(log),
	)

	httpMetrics := platformmetrics.New()
	handler := verificationHandler.New(service, log, httpMetrics, cfg.Server.MaxUploadBytes).
		WithRateLimit(newRateLimiter(cfg.Limits, rdb, log).Limit)
	validator := middleware.NewTokenValidator(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", health(db, rdb))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		handler.RegisterUser(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(log))
			handler.RegisterAdmin(r)
		})
	})

	app.router = r
	return app, nil
}

// trustBackend is a record store that can also answer whether a company was
// confirmed before, which the trade registry uses as its escape hatch.
type trustBackend interface {
	trust.Store
	registry.KnownVerifier
}

func recordStore(kind string, db *sql.DB, rdb *redis.Client, hasher *pii.Hasher) (trustBackend, error) {
	switch kind {
	case "postgres":
		return trustStore.NewPostgres(db), nil
	case "redis":
		return trustStore.NewRedis(rdb.Client, hasher), nil
	case "memory":
		return trustStore.NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unknown record store %q", kind)
	}
}

func newRecognizer(ctx context.Context, cfg config.OCR) (ocr.Recognizer, error) {
	if cfg.Engine != "textract" {
		return ocr.Placeholder{}, nil
	}
	t, err := ocr.NewTextract(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("textract: %w", err)
	}
	return t, nil
}

func newReconciler(cfg config.Registry, known registry.KnownVerifier, rdb *redis.Client, hasher *pii.Hasher, log *slog.Logger) *registry.Reconciler {
	client := &http.Client{Timeout: cfg.Timeout}
	opts := []registry.Option{
		registry.WithHTTPClient(client),
		registry.WithLogger(log),
		registry.WithTimeout(cfg.Timeout),
	}

	var cache registry.Cache = registry.NewInMemoryCache(cfg.CacheTTL)
	if rdb != nil {
		cache = registry.NewRedisCache(rdb.Client, cfg.CacheTTL, hasher)
	}

	ropts := []registry.ReconcilerOption{
		registry.WithCompany(registry.NewCompanyChecker(registry.CompanyConfig{
			BaseURL:      cfg.SudregBaseURL,
			ClientID:     cfg.SudregClientID,
			ClientSecret: cfg.SudregClientSecret,
		}, opts...)),
		registry.WithVAT(registry.NewVATChecker(cfg.VIESURL, opts...)),
		registry.WithCache(cache),
		registry.WithMetrics(registrymetrics.New()),
		registry.WithReconcilerLogger(log),
		registry.WithHasher(hasher),
	}
	if cfg.TradeEnabled {
		ropts = append(ropts, registry.WithTrade(registry.NewTradeChecker(cfg.TradePortalURL, known, opts...)))
	}
	for p, endpoint := range map[registry.Profession]string{
		registry.ProfessionLawyer:    cfg.ChamberLawyersURL,
		registry.ProfessionDoctor:    cfg.ChamberDoctorsURL,
		registry.ProfessionArchitect: cfg.ChamberArchitectsURL,
	} {
		if endpoint != "" {
			ropts = append(ropts, registry.WithChamber(p, registry.NewChamberChecker(p, endpoint, opts...)))
		}
	}
	return registry.NewReconciler(ropts...)
}

func newRateLimiter(cfg config.Limits, rdb *redis.Client, log *slog.Logger) *ratelimitmw.Middleware {
	limits := map[ratelimitmodels.Class]ratelimitmodels.Limit{
		ratelimitmodels.ClassDocument: {Requests: cfg.DocumentsPerHour, Window: time.Hour},
		ratelimitmodels.ClassProfile:  {Requests: cfg.ProfilePerHour, Window: time.Hour},
		ratelimitmodels.ClassRead:     {Requests: cfg.ReadsPerMinute, Window: time.Minute},
		ratelimitmodels.ClassAdmin:    {Requests: cfg.AdminPerMinute, Window: time.Minute},
	}
	opts := []ratelimitmw.Option{
		ratelimitmw.WithLogger(log),
		ratelimitmw.WithMetrics(ratelimitmetrics.New()),
		ratelimitmw.WithDisabled(!cfg.Enabled),
	}
	if rdb == nil {
		return ratelimitmw.New(bucket.NewInMemoryBucketStore(), limits, opts...)
	}
	opts = append(opts, ratelimitmw.WithFallback(bucket.NewInMemoryBucketStore()))
	return ratelimitmw.New(bucket.NewRedisBucketStore(rdb.Client), limits, opts...)
}

type dispatcher struct {
	*notify.Dispatcher
	primary notify.Notifier
}

func (d *dispatcher) close(ctx context.Context) error {
	err := d.Dispatcher.Close(ctx)
	if c, ok := d.primary.(notify.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func newDispatcher(ctx context.Context, cfg config.Notify, log *slog.Logger) (*dispatcher, error) {
	fallback := notify.NewLogNotifier(log)

	var primary notify.Notifier
	switch cfg.Kind {
	case "kafka":
		k, err := notify.NewKafkaNotifier(ctx, notify.KafkaConfig{
			Brokers:     cfg.KafkaBrokerList(),
			Topic:       cfg.KafkaTopic,
			Partitions:  kafkaPartitions,
			Replication: kafkaReplication,
		})
		if err != nil {
			return nil, err
		}
		primary = k
	case "amqp":
		a, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		primary = a
	default:
		primary = fallback
	}

	d := notify.NewDispatcher(primary,
		notify.WithFallback(fallback),
		notify.WithBreaker(circuit.New("notify", circuit.WithFailureThreshold(notifyFailures))),
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics(prometheus.DefaultRegisterer)),
		notify.WithBufferSize(cfg.BufferSize),
	)
	return &dispatcher{Dispatcher: d, primary: primary}, nil
}

func health(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		if db != nil {
			checks["postgres"] = "ok"
			if err := db.PingContext(ctx); err != nil {
				checks["postgres"] = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Health(ctx); err != nil {
				checks["redis"] = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
	}
}
