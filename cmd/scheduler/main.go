package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobengine/internal/config"
	"jobengine/internal/domain"
	"jobengine/internal/infra/etcd"
	"jobengine/internal/infra/memory"
	"jobengine/internal/infra/postgres"
	"jobengine/internal/jobs"
	"jobengine/internal/scheduler"
	"jobengine/internal/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	tracerShutdown, err := tracing.InitTracer("jobengine")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(logger, cancel)

	// Storage. The pool that backs the advisory locks is also handed to
	// job contexts and the execution history.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.NewPool(rootCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		logger.Info("connected to postgres")
	}

	locker, lockerCleanup, err := buildLocker(cfg, pool, logger)
	if err != nil {
		log.Fatalf("failed to build lock manager: %v", err)
	}
	defer lockerCleanup()

	var executions domain.ExecutionRepository
	if pool != nil {
		executions = postgres.NewExecutionRepository(pool, logger)
	} else {
		logger.Warn("no database configured, execution history is in-memory only")
		executions = memory.NewExecutionRepository()
	}

	// Job registration. Duplicate names and invalid cron expressions
	// fail here, before the loop ever starts.
	registry := domain.NewRegistry()
	if cfg.Cleanup.Enabled {
		cleanup := jobs.NewCleanup(cfg.Cleanup.Retention, cfg.Cleanup.BatchSize, logger)
		if err := registry.Register(cleanup); err != nil {
			log.Fatalf("failed to register job: %v", err)
		}
	}

	sched, err := scheduler.New(registry, locker, executions, logger,
		scheduler.WithDB(pool),
		scheduler.WithTickInterval(cfg.TickInterval),
		scheduler.WithGracePeriod(cfg.ShutdownGrace),
	)
	if err != nil {
		log.Fatalf("failed to build scheduler: %v", err)
	}

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Start(rootCtx)
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("starting metrics server", "addr", cfg.HTTPListenAddr)
	server := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics server failed: %v", err)
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	// Start drains in-flight executions within the grace period before
	// returning.
	if err := <-schedDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler stopped with error", "error", err)
	}
	logger.Info("shutdown complete")
}

// buildLocker selects the advisory-lock backend. The returned cleanup
// closes backend resources not shared with the rest of the process.
func buildLocker(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (domain.Locker, func(), error) {
	switch cfg.LockBackend {
	case "postgres":
		return postgres.NewLocker(pool, logger), func() {}, nil
	case "etcd":
		client, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
		if err != nil {
			return nil, nil, err
		}
		return etcd.NewLocker(client, logger), func() { _ = client.Close() }, nil
	case "memory":
		logger.Warn("memory lock backend provides no cross-replica exclusion")
		return memory.NewLocker(), func() {}, nil
	default:
		return nil, nil, errors.New("unknown lock backend " + cfg.LockBackend)
	}
}

func setupGracefulShutdown(logger *slog.Logger, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
		cancel()
	}()
}
