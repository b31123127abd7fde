package main

import (
	"context"
	"log"

	"lawerapp-backend/config"
	"lawerapp-backend/handlers"
	"lawerapp-backend/logging"
	"lawerapp-backend/repository"
	"lawerapp-backend/service"
	"lawerapp-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize database connections
	db, err := initPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize Postgres", zap.Error(err))
	}
	defer db.Close()

	// Initialize storage
	documentStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	logger.Info("storage initialized")

	// Initialize Gemini client
	gemini, err := service.NewGeminiClient(ctx, cfg.GeminiAPIKey,
		service.GeminiWithModel(cfg.GenerationModel),
		service.GeminiWithEmbeddingModel(cfg.EmbeddingModel),
		service.GeminiWithTemperature(cfg.Temperature),
		service.GeminiWithMaxTokens(cfg.MaxTokens),
		service.GeminiWithCostPer1KTokens(cfg.CostPer1KTokens),
		service.GeminiWithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to initialize Gemini", zap.Error(err))
	}
	defer gemini.Close()

	policy := retryPolicy(cfg)
	generator := service.NewResilientGenerator(gemini, policy, logger)
	embedder := service.NewResilientEmbedder(gemini, policy, logger)

	// Initialize services
	knowledgeRepo := repository.NewKnowledgeChunkRepository(db, cfg.EmbeddingDimensions)
	ragService := service.NewRAGService(
		service.RAGWithEmbedder(embedder),
		service.RAGWithVectorStore(knowledgeRepo),
		service.RAGWithGenerator(generator),
		service.RAGWithLogger(logger),
	)

	registry, err := service.NewAgentRegistry(service.DefaultAgents(service.AgentDeps{
		Retriever:     ragService,
		Generator:     generator,
		Logger:        logger,
		AugmentPrompt: cfg.AugmentPromptWithRAG,
	})...)
	if err != nil {
		logger.Fatal("failed to register agents", zap.Error(err))
	}
	coordinator := service.NewCoordinator(registry, generator,
		service.CoordinatorWithAnalyzer(generator),
		service.CoordinatorWithLogger(logger),
	)

	templates := service.DefaultTemplateRegistry()
	if cfg.TemplatesFile != "" {
		templates, err = service.LoadTemplateRegistry(cfg.TemplatesFile)
		if err != nil {
			logger.Fatal("failed to load templates", zap.String("path", cfg.TemplatesFile), zap.Error(err))
		}
	}
	documentGenerator := service.NewDocumentGenerator(templates, coordinator, service.DocumentWithLogger(logger))
	exporter := service.NewDocumentExporter(documentStorage, logger)

	// Initialize handlers
	router := handlers.NewRouter(
		handlers.NewConsultationHandler(coordinator, logger),
		handlers.NewDocumentHandler(templates, documentGenerator, exporter, documentStorage, logger),
		handlers.NewKnowledgeHandler(ragService, logger),
		logger,
	)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func retryPolicy(cfg *config.Config) service.RetryPolicy {
	policy := service.RetryPolicy{
		Timeout:        cfg.CallTimeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		policy.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return policy
}

func initPostgres(ctx context.Context, connString string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Enable pgvector extension
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		logger.Warn("failed to create pgvector extension; this is normal if it is installed or needs superuser privileges", zap.Error(err))
	} else {
		logger.Info("pgvector extension enabled")
	}

	logger.Info("Postgres connection established with pgvector support")
	return pool, nil
}
