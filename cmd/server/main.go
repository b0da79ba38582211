package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"registrar/internal/audit"
	"registrar/internal/audit/kafka"
	httpapi "registrar/internal/http"
	"registrar/internal/platform/config"
	"registrar/internal/platform/database"
	"registrar/internal/platform/httpserver"
	"registrar/internal/platform/logger"
	platformmetrics "registrar/internal/platform/metrics"
	"registrar/internal/platform/redis"
	"registrar/internal/platform/tracing"
	ratelimitmetrics "registrar/internal/ratelimit/metrics"
	ratelimitmw "registrar/internal/ratelimit/middleware"
	ratelimitmodels "registrar/internal/ratelimit/models"
	"registrar/internal/ratelimit/store/bucket"
	"registrar/internal/registration/handler"
	registrationmetrics "registrar/internal/registration/metrics"
	"registrar/internal/registration/policy"
	"registrar/internal/registration/service"
	"registrar/internal/registration/store"
)

// main wires dependencies and runs the HTTP server and the audit worker until
// SIGINT or SIGTERM. Business logic lives in internal/registration.
func main() {
	if err := run(); err != nil {
		slog.Error("registrar exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := logger.New(level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checks := map[string]httpapi.HealthCheck{}

	regStore, storeTx, db, err := buildStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["store"] = db.PingContext
	}

	rules, err := policy.New(policy.Thresholds{
		CourseMaxStudents: cfg.Registry.CourseMaxStudents,
		StudentMaxCourses: cfg.Registry.StudentMaxCourses,
	})
	if err != nil {
		return err
	}

	publisher := audit.NewPublisher(audit.WithPublisherLogger(log))
	sink, closeSink, err := buildSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()
	worker := audit.NewWorker(publisher, sink, audit.WithWorkerLogger(log))

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(registrationmetrics.New(reg)),
		service.WithAuditPublisher(publisher),
	}
	if storeTx != nil {
		opts = append(opts, service.WithTx(storeTx))
	}
	svc, err := service.New(regStore, rules, opts...)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := buildRateLimit(ctx, cfg, log, reg, checks)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := httpapi.NewRouter(httpapi.Deps{
		Registration:   handler.New(svc, log),
		RateLimit:      limiter,
		Metrics:        platformmetrics.New(reg, reg),
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registrar",
			"addr", cfg.Server.Addr,
			"store", cfg.Store.Backend,
			"course_max_students", rules.Thresholds().CourseMaxStudents,
			"student_max_courses", rules.Thresholds().StudentMaxCourses,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStore opens the configured backend. The in-memory backend returns a nil
// StoreTx and DB; the service then serializes writes with a process-local lock.
func buildStore(ctx context.Context, cfg config.Store, log *slog.Logger) (service.Store, service.StoreTx, *sql.DB, error) {
	if cfg.Backend == config.BackendMemory {
		log.Info("using in-memory store")
		return store.NewInMemoryStore(), nil, nil, nil
	}

	dialect, err := store.ParseDialect(cfg.Backend)
	if err != nil {
		return nil, nil, nil, err
	}
	dsn := cfg.DatabaseURL
	if dialect == store.DialectSQLite {
		dsn = store.SQLiteDSN(cfg.SQLitePath)
	}
	db, err := database.Open(ctx, dialect.DriverName(), dsn, database.WithMaxOpenConns(dialect.MaxOpenConns()))
	if err != nil {
		return nil, nil, nil, err
	}

	sqlStore := store.NewSQLStore(db, dialect, store.WithTxTimeout(cfg.TxTimeout))
	if err := sqlStore.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("using sql store", "dialect", string(dialect))
	return sqlStore, sqlStore, db, nil
}

func buildSink(ctx context.Context, cfg config.Kafka, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Info("kafka not configured, logging domain events")
		return audit.NewLogSink(log), func() {}, nil
	}

	client, err := kafka.NewClient(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Topic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info("publishing domain events to kafka", "topic", cfg.Topic)
	return kafka.NewSink(client, cfg.Topic), client.Close, nil
}

// buildRateLimit prefers a shared Redis window and falls back to process memory
// while Redis is failing. Without REDIS_URL limits are kept in memory only.
func buildRateLimit(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer, checks map[string]httpapi.HealthCheck) (*ratelimitmw.Middleware, func(), error) {
	limit := ratelimitmodels.Limit{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	opts := []ratelimitmw.Option{
		ratelimitmw.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithBreakerThresholds(cfg.RateLimit.BreakerFailures, cfg.RateLimit.BreakerRecoveries),
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return ratelimitmw.New(bucket.NewInMemoryBucketStore(), limit, log, opts...), func() {}, nil
	}

	checks["redis"] = client.Health
	opts = append(opts, ratelimitmw.WithFallback(ratelimitmw.NewFallbackLimiter()))
	log.Info("using redis rate limit store")
	closeClient := func() { _ = client.Close() }
	return ratelimitmw.New(bucket.NewRedisBucketStore(client.Client), limit, log, opts...), closeClient, nil
}
