package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/config"
	"github.com/forgelane/proposal-engine/pkg/database"
	"github.com/forgelane/proposal-engine/pkg/handlers"
	"github.com/forgelane/proposal-engine/pkg/llm"
	"github.com/forgelane/proposal-engine/pkg/logging"
	"github.com/forgelane/proposal-engine/pkg/middleware"
	"github.com/forgelane/proposal-engine/pkg/prompts"
	"github.com/forgelane/proposal-engine/pkg/repositories"
	"github.com/forgelane/proposal-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx := context.Background()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate needs a database/sql handle.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		_ = sqlDB.Close()
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	// Repositories
	projectRepo := repositories.NewProjectRepository(db.Pool)
	knowledgeRepo := repositories.NewKnowledgeRepository(db.Pool)
	usageRepo := repositories.NewUsageRepository(db.Pool)
	healthRepo := repositories.NewHealthRepository(db.Pool)

	// Providers. Missing credentials leave a provider registered but
	// unconfigured; the orchestrator skips it without penalty.
	providers := buildProviders(cfg, logger)
	for _, p := range providers {
		logger.Info("provider registered",
			zap.String("provider", p.Name()),
			zap.String("model", p.Model()),
			zap.Bool("configured", p.Configured()))
	}

	// Services
	healthStore := services.NewHealthStore(healthRepo, logger)
	usageTracker := services.NewUsageTracker(usageRepo, logger)
	knowledgeService := services.NewKnowledgeService(knowledgeRepo, logger)

	orchestrator := services.NewProviderOrchestrator(services.OrchestratorDeps{
		Providers:      providers,
		Routing:        cfg.Orchestrator.Routing,
		Builder:        prompts.NewBuilder(),
		Knowledge:      knowledgeService,
		Usage:          usageTracker,
		Health:         healthStore,
		AttemptTimeout: time.Duration(cfg.Orchestrator.AttemptTimeoutSeconds) * time.Second,
	}, logger)

	workflow := services.NewWorkflowController(services.WorkflowDeps{
		Projects:         projectRepo,
		Knowledge:        knowledgeService,
		Orchestrator:     orchestrator,
		Fallback:         services.NewFallbackResponder(),
		Renderer:         services.NewLoggingRenderer(logger),
		Emailer:          services.NewLoggingSender(logger),
		RegenerateStages: cfg.Workflow.RegenerateStages,
	}, logger)

	// HTTP surface
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, healthStore, orchestrator, logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(workflow, logger).RegisterRoutes(mux)
	handlers.NewUsageHandler(usageTracker, logger).RegisterRoutes(mux)
	handlers.NewKnowledgeHandler(knowledgeService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting proposal-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildProviders constructs the provider set from configuration. The OpenAI
// client doubles as the community provider when a community-compatible
// endpoint is configured.
func buildProviders(cfg *config.Config, logger *zap.Logger) []llm.Provider {
	providers := make([]llm.Provider, 0, 3)

	openaiProvider, err := llm.NewOpenAIProvider(&llm.OpenAIConfig{
		Name:     "openai",
		Endpoint: cfg.Providers.OpenAI.BaseURL,
		Model:    cfg.Providers.OpenAI.Model,
		APIKey:   cfg.Providers.OpenAI.APIKey,
	}, logger)
	if err != nil {
		logger.Warn("openai provider unavailable", zap.Error(err))
	} else {
		providers = append(providers, openaiProvider)
	}

	providers = append(providers, llm.NewAnthropicProvider(&llm.AnthropicConfig{
		Model:     cfg.Providers.Anthropic.Model,
		APIKey:    cfg.Providers.Anthropic.APIKey,
		MaxTokens: cfg.Providers.Anthropic.MaxTokens,
	}, logger))

	if cfg.Providers.Community.IsAvailable() {
		communityProvider, err := llm.NewOpenAIProvider(&llm.OpenAIConfig{
			Name:     "community",
			Endpoint: cfg.Providers.Community.BaseURL,
			Model:    cfg.Providers.Community.Model,
			APIKey:   cfg.Providers.Community.APIKey,
		}, logger)
		if err != nil {
			logger.Warn("community provider unavailable", zap.Error(err))
		} else {
			providers = append(providers, communityProvider)
		}
	}

	return providers
}
