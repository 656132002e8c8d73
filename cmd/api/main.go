// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Vitalis secure report API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis when configured.
//  5. Run database migrations (idempotent).
//  6. Connect to object storage when configured.
//  7. Wire the vault, challenge and report services.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/vitalis/internal/api"
	"github.com/taibuivan/vitalis/internal/challenge"
	"github.com/taibuivan/vitalis/internal/platform/config"
	"github.com/taibuivan/vitalis/internal/platform/constants"
	"github.com/taibuivan/vitalis/internal/platform/migration"
	"github.com/taibuivan/vitalis/internal/platform/objectstore"
	pgstore "github.com/taibuivan/vitalis/internal/platform/postgres"
	redisstore "github.com/taibuivan/vitalis/internal/platform/redis"
	"github.com/taibuivan/vitalis/internal/platform/sec"
	"github.com/taibuivan/vitalis/internal/records"
	"github.com/taibuivan/vitalis/internal/report"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "vitalis"))
	slog.SetDefault(log)

	log.Info("[Vitalis] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "vitalis"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("flow_mode", cfg.FlowMode),
	)

	if cfg.ExposeOTPCode {
		log.Warn("otp_codes_exposed_in_responses")
	}

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Lives until shutdown; stops background janitors.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	health := api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
	}

	// ── 4. Redis ──────────────────────────────────────────────────────────
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		health.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	} else {
		log.Warn("redis_not_configured", slog.String("fallback", "process memory; flows and throttles are not shared between replicas"))
	}

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Object Storage ─────────────────────────────────────────────────
	var archive report.Archive
	if cfg.ArchiveEnabled() {
		bucket, err := objectstore.New(startupCtx, objectstore.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, log)
		must(log, err, "configure object storage")

		archive = report.NewBucketArchive(bucket)
		health.CheckObjectStore = bucket.Ping
	}

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	var (
		throttle challenge.Throttle
		flows    report.FlowStore
	)
	if rdb != nil {
		throttle = challenge.NewRedisThrottle(rdb)
		flows = report.NewRedisFlowStore(rdb, cfg.SessionTTL)
	} else {
		throttle = challenge.NewMemoryThrottle()
		flows = report.NewMemoryFlowStore(cfg.SessionTTL)
	}

	challengeService := challenge.NewService(
		challenge.NewPostgresRepository(pool),
		throttle,
		challenge.NewLogSender(log),
		challenge.Settings{
			AccessTTL:    cfg.AccessOTPTTL,
			DownloadTTL:  cfg.DownloadOTPTTL,
			MaxAttempts:  cfg.OTPMaxAttempts,
			IssueLimit:   cfg.OTPIssueLimit,
			IssueWindow:  cfg.OTPIssueWindow,
			StoreTimeout: cfg.StoreTimeout,
			ExposeCode:   cfg.ExposeOTPCode,
		},
		log,
	)

	tokens, err := sec.NewTokenService(cfg.TokenSecret)
	must(log, err, "initialize token service")

	aggregator := report.NewAggregator(report.Sources{
		Diet:         records.NewPostgresDietSource(pool),
		Fitness:      records.NewPostgresFitnessSource(pool),
		MentalHealth: records.NewPostgresMentalHealthSource(pool),
	}, cfg.DataSourceTimeout)

	reportService := report.NewService(report.Dependencies{
		Challenges: challengeService,
		Flows:      flows,
		Directory:  records.NewPostgresDirectory(pool),
		Aggregator: aggregator,
		Keys:       sec.NewKeyDeriver(cfg.MasterSecret, cfg.DeploymentSalt, cfg.KDFConcurrency),
		Tokens:     tokens,
		Archive:    archive,
	}, report.Settings{
		SingleStep:   cfg.SingleStepFlow(),
		AllowPartial: cfg.AllowPartial,
		TokenTTL:     cfg.TokenTTL,
		StoreTimeout: cfg.StoreTimeout,
	}, log)

	liveness, readiness := api.NewHealthHandlers(health, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(appCtx, api.Options{
		Port:      cfg.ServerPort,
		CORS:      cfg,
		RateRPS:   constants.DefaultRateLimitRPS,
		RateBurst: constants.DefaultRateLimitBurst,
	}, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Report:    report.NewHandler(reportService),
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
