package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"lawerapp-backend/config"
	"lawerapp-backend/logging"
	"lawerapp-backend/models"
	"lawerapp-backend/repository"
	"lawerapp-backend/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ingestOptions struct {
	dir         string
	area        string
	disputeType string
	authority   string
	update      bool
	rps         float64
	dryRun      bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest-knowledge",
		Short: "Chunk, embed and store legal texts in the knowledge base",
		Long: `Reads every .txt and .md file in a directory, splits it into paragraphs,
embeds each paragraph and stores it in the knowledge_chunks table.

The document id is the file name without extension and the title is the first
non-empty line. The legal area comes from --area or is detected from the file
name. Documents that already have chunks are skipped unless --update is set,
in which case they are deleted and re-ingested.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "./legal_texts", "directory with legal texts")
	cmd.Flags().StringVar(&opts.area, "area", "", "legal area for every file (detected from the file name when empty)")
	cmd.Flags().StringVar(&opts.disputeType, "dispute-type", "", "dispute type tag for every file")
	cmd.Flags().StringVar(&opts.authority, "authority", "", "issuing authority (detected from the source type when empty)")
	cmd.Flags().BoolVar(&opts.update, "update", false, "replace documents that are already ingested")
	cmd.Flags().Float64Var(&opts.rps, "rps", 0.5, "maximum embedding requests per second")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print what would be ingested without calling any service")

	return cmd
}

func runIngest(ctx context.Context, opts ingestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.area != "" && !models.LegalArea(opts.area).Valid() {
		return fmt.Errorf("unknown legal area: %s", opts.area)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, "development")
	if err != nil {
		return err
	}
	defer logger.Sync()

	docs, err := loadDocuments(opts)
	if err != nil {
		return err
	}
	logger.Info("documents found", zap.String("dir", opts.dir), zap.Int("count", len(docs)))

	if opts.dryRun {
		for _, doc := range docs {
			fmt.Printf("%s\t%s\t%s\t%q\n", doc.ID, doc.LegalArea, doc.SourceType, doc.Title)
		}
		return nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	var tableExists bool
	err = pool.QueryRow(ctx, "SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'knowledge_chunks')").Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if !tableExists {
		return fmt.Errorf("knowledge_chunks table does not exist, run cmd/create-schema first")
	}

	gemini, err := service.NewGeminiClient(ctx, cfg.GeminiAPIKey,
		service.GeminiWithEmbeddingModel(cfg.EmbeddingModel),
		service.GeminiWithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer gemini.Close()

	policy := service.RetryPolicy{
		Timeout:        cfg.CallTimeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	if opts.rps > 0 {
		policy.Limiter = rate.NewLimiter(rate.Limit(opts.rps), 1)
	}

	repo := repository.NewKnowledgeChunkRepository(pool, cfg.EmbeddingDimensions)
	rag := service.NewRAGService(
		service.RAGWithEmbedder(service.NewResilientEmbedder(gemini, policy, logger)),
		service.RAGWithVectorStore(repo),
		service.RAGWithLogger(logger),
	)

	var ingested, skipped, failed int
	for _, doc := range docs {
		docLogger := logger.With(zap.String("document_id", doc.ID))

		existing, err := repo.CountByDocument(ctx, doc.ID)
		if err != nil {
			docLogger.Warn("failed to check existing chunks", zap.Error(err))
		}
		if existing > 0 && !opts.update {
			docLogger.Info("skipping, already ingested", zap.Int("chunks", existing))
			skipped++
			continue
		}

		var chunks int
		if existing > 0 {
			chunks, err = rag.UpdateDocument(ctx, doc)
		} else {
			chunks, err = rag.AddDocument(ctx, doc)
		}
		if err != nil {
			docLogger.Error("failed to ingest document", zap.Error(err))
			failed++
			continue
		}
		docLogger.Info("document ingested", zap.Int("chunks", chunks))
		ingested++
	}

	stats := rag.Stats(ctx)
	logger.Info("ingestion complete",
		zap.Int("ingested", ingested),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("total_documents", stats.TotalDocuments),
		zap.Int("total_chunks", stats.TotalChunks),
	)
	if failed > 0 {
		return fmt.Errorf("%d documents failed to ingest", failed)
	}
	return nil
}

func loadDocuments(opts ingestOptions) ([]models.KnowledgeDocument, error) {
	entries, err := os.ReadDir(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var docs []models.KnowledgeDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(opts.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		doc, err := buildDocument(name, string(content), opts)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", name, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
