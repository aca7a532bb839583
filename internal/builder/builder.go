package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bizintake/onboarding-backend/internal/api"
	conversationapi "github.com/bizintake/onboarding-backend/internal/api/conversation"
	"github.com/bizintake/onboarding-backend/internal/catalog"
	"github.com/bizintake/onboarding-backend/internal/config"
	"github.com/bizintake/onboarding-backend/internal/integration/llm"
	"github.com/bizintake/onboarding-backend/internal/integration/registry"
	"github.com/bizintake/onboarding-backend/internal/pipeline"
	"github.com/bizintake/onboarding-backend/internal/pkg/validator"
	"github.com/bizintake/onboarding-backend/internal/repository"
	"github.com/bizintake/onboarding-backend/internal/session"
	"github.com/bizintake/onboarding-backend/internal/usecase/conversation"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Build the question catalog
	cat := catalog.Default()
	if len(cfg.Questions) > 0 {
		cat, err = catalog.New(cfg.Questions)
		if err != nil {
			return nil, fmt.Errorf("build question catalog: %w", err)
		}
	}
	logger.Info("Question catalog ready", zap.Int("question_count", cat.Len()))

	// Setup the session store. With DATABASE_URL set sessions are persisted
	// in Postgres, otherwise they live in process memory.
	var store conversation.Store
	var db *pgxpool.Pool
	var pgStore *repository.ConversationPostgres

	if cfg.DatabaseURL != "" {
		db, err = setupDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}

		logger.Info("Running database migrations")
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		pgStore = repository.NewConversationPostgres(db)
		store = pgStore
	} else {
		logger.Info("No DATABASE_URL configured, using in-memory session store")
		store = session.NewMemoryStore(cfg.SessionTTL, cfg.SessionCleanup)
	}

	// Initialize external service connectors (with mock support)
	var llmConnector conversation.LLMConnector
	var registryConnector conversation.RegistryConnector

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = llm.NewMockConnector(logger)
		registryConnector = registry.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		llmConnector = llm.NewConnector(cfg.LLMConnectorCfg, logger)
		registryConnector = registry.NewConnector(cfg.RegistryConnectorCfg, logger)
	}

	// Build the response validation pipeline
	pipe, err := pipeline.New(cfg.AdvicePatterns)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("build response pipeline: %w", err)
	}

	// Initialize the conversation engine
	conversationUC := conversation.NewUsecase(
		store,
		llmConnector,
		registryConnector,
		cat,
		pipe,
		validator.NewFieldValidator(),
		cfg.TurnTimeout,
		logger,
	)
	logger.Info("Conversation engine initialized")

	// Setup API handlers
	conversationHandler := conversationapi.NewHandler(conversationUC, logger)

	// Setup router
	router := api.SetupRouter(conversationHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	app := &App{
		server:          server,
		db:              db,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	if pgStore != nil {
		app.startJanitor(pgStore, cfg.SessionTTL, cfg.SessionCleanup)
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return app, nil
}
