package service

import (
	"context"

	"lawerapp-backend/models"
)

// Embedder turns text into a vector for similarity search
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentEmbedder is implemented by embedders that use a separate
// task type for passages being indexed rather than queried.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// CompletionOptions tunes a single generation call
type CompletionOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int32
	Context     *models.LegalContext
}

// Completion is the text-generation result together with its accounting
type Completion struct {
	Text       string
	Confidence float64
	Sources    []models.LegalSource
	TokensUsed int
	Cost       float64
	Model      string
}

// TextGenerator produces natural-language text for a prompt
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (*Completion, error)
}

// ComplexityEstimate is the generation service's view of how hard a question is
type ComplexityEstimate struct {
	Complexity     string `json:"complexity"`     // "low", "medium", "high"
	EstimatedTime  int    `json:"estimated_time"` // minutes
	RequiresExpert bool   `json:"requires_expert"`
}

// QueryAnalyzer exposes the lightweight classification endpoints of the generation service
type QueryAnalyzer interface {
	Classify(ctx context.Context, text string, categories []string) (string, error)
	Complexity(ctx context.Context, text string) (*ComplexityEstimate, error)
}

// VectorFilters restricts similarity search to matching chunks
type VectorFilters struct {
	LegalArea    models.LegalArea
	Jurisdiction models.Jurisdiction
	DisputeType  string
}

// VectorQuery parameterizes a similarity search
type VectorQuery struct {
	Limit     int
	Threshold float64
	Filters   VectorFilters
}

// VectorStore is the knowledge store boundary
type VectorStore interface {
	SimilaritySearch(ctx context.Context, vector []float32, query VectorQuery) ([]models.KnowledgeChunk, error)
	Upsert(ctx context.Context, chunk models.KnowledgeChunk) error
	DeleteDocument(ctx context.Context, documentID string) error
	Stats(ctx context.Context) (*models.KnowledgeStats, error)
}
