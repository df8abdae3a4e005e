package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/parcelflow/parcelflow-api/internal/config"
	"github.com/parcelflow/parcelflow-api/internal/generation"
	"github.com/parcelflow/parcelflow-api/internal/platform/gemini"
	"github.com/parcelflow/parcelflow-api/internal/platform/logger"
	"github.com/parcelflow/parcelflow-api/internal/platform/postgres"
	"github.com/parcelflow/parcelflow-api/internal/workflow"
)

// application holds the fully wired dependency graph for the server.
type application struct {
	config       *config.Config
	logger       *slog.Logger
	db           *sql.DB
	registry     *workflow.Registry
	orchestrator *workflow.Orchestrator
	executor     *workflow.Executor
	manager      *workflow.Manager
	reviews      *workflow.ReviewService
}

// initializeApp loads configuration, sets up logging, connects to the
// database, applies migrations, and wires the workflow engine together.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		return nil, err
	}

	gen, err := setupGenerator(ctx, cfg, appLogger)
	if err != nil {
		return nil, err
	}

	registry := workflow.NewRegistry()
	if err := workflow.RegisterDefaultProcessors(registry, gen, appLogger); err != nil {
		return nil, fmt.Errorf("failed to register processors: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db)
	pkgStore := postgres.NewPostgresPackageStore(db)

	orchestrator := workflow.NewOrchestrator(taskStore, registry, workflow.OrchestratorConfig{
		DefaultMaxRetries: cfg.Workflow.DefaultMaxRetries,
		BackoffCap:        time.Duration(cfg.Workflow.BackoffCapSeconds) * time.Second,
	}, appLogger)

	executor := workflow.NewExecutor(pkgStore, orchestrator, workflow.ExecutorConfig{
		PollInterval:   time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		StepMaxRetries: cfg.Workflow.DefaultMaxRetries,
	}, appLogger)

	manager := workflow.NewManager(pkgStore, executor, registry, appLogger)
	reviews := workflow.NewReviewService(db, pkgStore, appLogger)

	return &application{
		config:       cfg,
		logger:       appLogger,
		db:           db,
		registry:     registry,
		orchestrator: orchestrator,
		executor:     executor,
		manager:      manager,
		reviews:      reviews,
	}, nil
}

// setupGenerator picks the content generator: Gemini when an API key is
// configured, the deterministic static generator otherwise.
func setupGenerator(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) (generation.Generator, error) {
	if cfg.LLM.GeminiAPIKey == "" {
		appLogger.Warn("no Gemini API key configured, using static content generator")
		return generation.NewStaticGenerator(), nil
	}

	gen, err := gemini.NewGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini generator: %w", err)
	}
	return gen, nil
}

// cleanup stops the background workers and closes the database. The
// executor goes first so no new step tasks land on a stopping
// orchestrator.
func (app *application) cleanup() {
	app.executor.Stop()
	app.orchestrator.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
