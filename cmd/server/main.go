// Package main implements the entry point for the goalforge server,
// which runs asynchronous AI generation jobs against users' goals and
// exposes a thin HTTP API for submitting and tracking them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/phelanor/goalforge/internal/api"
	"github.com/phelanor/goalforge/internal/config"
	"github.com/phelanor/goalforge/internal/engine"
	"github.com/phelanor/goalforge/internal/platform/gemini"
	"github.com/phelanor/goalforge/internal/platform/logger"
	"github.com/phelanor/goalforge/internal/platform/postgres"
	"github.com/phelanor/goalforge/migrations"
)

// shutdownTimeout bounds graceful HTTP shutdown before the process exits.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run() error {
	// A missing .env file is fine; environment variables take over.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"environment", cfg.Server.Environment)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	if err := migrations.Up(db); err != nil {
		return err
	}
	appLogger.Info("database migrations applied")

	ctx := context.Background()
	generator, err := gemini.NewGeminiGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	metrics := engine.NewMetrics(prometheus.DefaultRegisterer)

	manager, err := engine.NewManager(
		engineConfig(cfg.Engine),
		postgres.NewPostgresProcessingStateStore(db),
		postgres.NewPostgresWorkSource(db),
		generator,
		appLogger,
		metrics,
	)
	if err != nil {
		return fmt.Errorf("failed to create engine manager: %w", err)
	}

	router := newRouter(manager)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		appLogger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed", "error", err)
	}

	// Running jobs observe the shutdown at their next checkpoint and stay
	// in processing; they are not failed retroactively.
	manager.Stop()
	appLogger.Info("server stopped")

	return nil
}

// newRouter assembles the HTTP routes: the job API under /api and the
// Prometheus scrape endpoint at /metrics.
func newRouter(manager *engine.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", api.NewJobHandler(manager).Routes)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// engineConfig maps the loaded configuration onto the engine's config,
// keeping the default retry policies.
func engineConfig(cfg config.EngineConfig) engine.Config {
	ec := engine.DefaultConfig()
	ec.MaxBatchSize = cfg.MaxBatchSize
	ec.MaxConcurrentBatches = cfg.MaxConcurrentBatches
	ec.MaxConcurrentItemsPerBatch = cfg.MaxConcurrentItemsPerBatch
	ec.UnitTimeout = time.Duration(cfg.UnitTimeoutSeconds) * time.Second
	ec.BatchTimeout = time.Duration(cfg.BatchTimeoutSeconds) * time.Second
	ec.WorkflowTimeout = time.Duration(cfg.WorkflowTimeoutSeconds) * time.Second
	return ec
}
