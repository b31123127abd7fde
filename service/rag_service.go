package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lawerapp-backend/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit        = 10
	defaultSearchThreshold    = 0.7
	contextualSearchLimit     = 5
	contextualSearchThreshold = 0.6
)

var tracer = otel.Tracer("lawerapp-backend/service")

// RAGService handles knowledge retrieval and retrieval-augmented answers
type RAGService struct {
	embedder  Embedder
	store     VectorStore
	generator TextGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// RAGServiceOption is a functional option for RAGService
type RAGServiceOption func(*RAGService)

// RAGWithEmbedder sets the embedder
func RAGWithEmbedder(embedder Embedder) RAGServiceOption {
	return func(s *RAGService) {
		s.embedder = embedder
	}
}

// RAGWithVectorStore sets the knowledge store
func RAGWithVectorStore(store VectorStore) RAGServiceOption {
	return func(s *RAGService) {
		s.store = store
	}
}

// RAGWithGenerator sets the text generator used for contextual answers
func RAGWithGenerator(generator TextGenerator) RAGServiceOption {
	return func(s *RAGService) {
		s.generator = generator
	}
}

// RAGWithLogger sets the logger
func RAGWithLogger(logger *zap.Logger) RAGServiceOption {
	return func(s *RAGService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRAGService creates a new retrieval service
func NewRAGService(opts ...RAGServiceOption) *RAGService {
	s := &RAGService{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchOptions controls a knowledge search. Zero values select the defaults.
type SearchOptions struct {
	Limit           int
	Threshold       float64
	IncludeMetadata bool
}

// DefaultSearchOptions returns limit 10, threshold 0.7 with metadata
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit:           defaultSearchLimit,
		Threshold:       defaultSearchThreshold,
		IncludeMetadata: true,
	}
}

// Search embeds the query and returns passages in the store's relevance order
func (s *RAGService) Search(ctx context.Context, query string, lc models.LegalContext, opts SearchOptions) ([]models.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "rag.search")
	defer span.End()
	span.SetAttributes(attribute.String("legal_area", string(lc.Area)))

	if s.embedder == nil || s.store == nil {
		return nil, &RetrievalError{Op: "knowledge search failed", Err: errors.New("embedder or knowledge store not set")}
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultSearchLimit
	}
	if opts.Threshold <= 0 {
		opts.Threshold = defaultSearchThreshold
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, s.searchFailed(span, fmt.Errorf("embed query: %w", err))
	}

	chunks, err := s.store.SimilaritySearch(ctx, vector, VectorQuery{
		Limit:     opts.Limit,
		Threshold: opts.Threshold,
		Filters: VectorFilters{
			LegalArea:    lc.Area,
			Jurisdiction: models.JurisdictionRussia,
			DisputeType:  lc.DisputeType,
		},
	})
	if err != nil {
		return nil, s.searchFailed(span, fmt.Errorf("similarity search: %w", err))
	}

	results := make([]models.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Similarity < opts.Threshold {
			continue
		}
		results = append(results, toSearchResult(chunk, opts.IncludeMetadata))
		if len(results) == opts.Limit {
			break
		}
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

func (s *RAGService) searchFailed(span trace.Span, err error) error {
	s.logger.Error("knowledge search failed", zap.Error(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &RetrievalError{Op: "knowledge search failed", Err: err}
}

func toSearchResult(chunk models.KnowledgeChunk, includeMetadata bool) models.SearchResult {
	source := models.LegalSource{
		ID:      chunk.DocumentID,
		Title:   chunk.Title,
		Type:    chunk.SourceType,
		Excerpt: excerpt(chunk.Content, excerptLength),
	}
	if chunk.SourceURL != nil {
		source.URL = *chunk.SourceURL
	}
	if article, ok := chunk.Metadata["article"].(string); ok {
		source.Article = article
	}

	result := models.SearchResult{
		ID:        chunk.ID.String(),
		Title:     chunk.Title,
		Content:   chunk.Content,
		Relevance: clamp01(chunk.Similarity),
		Source:    source,
	}
	if includeMetadata {
		result.Metadata = &models.SearchMetadata{
			LegalArea:    chunk.LegalArea,
			Jurisdiction: chunk.Jurisdiction,
			LastUpdated:  chunk.UpdatedAt,
			Authority:    chunk.Authority,
		}
	}
	return result
}

// ContextualResponse is a generation grounded on retrieved passages
type ContextualResponse struct {
	Response   string               `json:"response"`
	Sources    []models.LegalSource `json:"sources"`
	Confidence float64              `json:"confidence"`
}

// GenerateContextualResponse answers the query using the top passages as context
func (s *RAGService) GenerateContextualResponse(ctx context.Context, query string, lc models.LegalContext) (*ContextualResponse, error) {
	if s.generator == nil {
		return nil, &GenerationError{Op: "contextual response", Err: errors.New("text generator not set")}
	}

	results, err := s.Search(ctx, query, lc, SearchOptions{
		Limit:           contextualSearchLimit,
		Threshold:       contextualSearchThreshold,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Контекст из базы законодательства:\n%s\n\nВопрос: %s", formatPassages(results), query)
	completion, err := complete(ctx, s.generator, s.logger, "contextual response", prompt, CompletionOptions{Context: &lc})
	if err != nil {
		return nil, err
	}

	sources := make([]models.LegalSource, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Source)
	}
	return &ContextualResponse{
		Response:   completion.Text,
		Sources:    sources,
		Confidence: clamp01(completion.Confidence),
	}, nil
}

// formatPassages renders results as "[authority] title: content" blocks separated by blank lines
func formatPassages(results []models.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		authority := ""
		if r.Metadata != nil {
			authority = r.Metadata.Authority
		}
		blocks = append(blocks, fmt.Sprintf("[%s] %s: %s", authority, r.Title, r.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// AddDocument chunks, embeds and stores a knowledge document, returning the chunk count
func (s *RAGService) AddDocument(ctx context.Context, doc models.KnowledgeDocument) (int, error) {
	count, err := s.addDocument(ctx, doc)
	if err != nil {
		s.logger.Error("failed to add document", zap.String("document_id", doc.ID), zap.Error(err))
		return 0, &RetrievalError{Op: "failed to add document", Err: err}
	}
	return count, nil
}

// UpdateDocument replaces every chunk of a document with a fresh ingestion
func (s *RAGService) UpdateDocument(ctx context.Context, doc models.KnowledgeDocument) (int, error) {
	if s.store == nil {
		return 0, &RetrievalError{Op: "failed to update document", Err: errors.New("knowledge store not set")}
	}
	if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
		s.logger.Error("failed to update document", zap.String("document_id", doc.ID), zap.Error(err))
		return 0, &RetrievalError{Op: "failed to update document", Err: fmt.Errorf("delete previous version: %w", err)}
	}
	count, err := s.addDocument(ctx, doc)
	if err != nil {
		s.logger.Error("failed to update document", zap.String("document_id", doc.ID), zap.Error(err))
		return 0, &RetrievalError{Op: "failed to update document", Err: err}
	}
	return count, nil
}

func (s *RAGService) addDocument(ctx context.Context, doc models.KnowledgeDocument) (int, error) {
	if s.embedder == nil || s.store == nil {
		return 0, errors.New("embedder or knowledge store not set")
	}
	if doc.ID == "" {
		return 0, errors.New("document id is required")
	}

	paragraphs := splitParagraphs(doc.Content)
	if len(paragraphs) == 0 {
		return 0, ErrNoUsableChunks
	}

	jurisdiction := doc.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = models.JurisdictionRussia
	}
	updatedAt := s.now().UTC()

	for i, paragraph := range paragraphs {
		vector, err := s.embedDocument(ctx, paragraph)
		if err != nil {
			return i, fmt.Errorf("embed section %d: %w", i+1, err)
		}

		chunk := models.KnowledgeChunk{
			ID:           uuid.New(),
			DocumentID:   doc.ID,
			Section:      i + 1,
			Title:        doc.Title,
			Content:      paragraph,
			LegalArea:    doc.LegalArea,
			Jurisdiction: jurisdiction,
			Authority:    doc.Authority,
			SourceType:   doc.SourceType,
			Metadata: map[string]any{
				"section":        i + 1,
				"total_sections": len(paragraphs),
			},
			UpdatedAt: updatedAt,
			Embedding: vector,
		}
		if doc.DisputeType != "" {
			chunk.DisputeType = &doc.DisputeType
		}
		if doc.SourceURL != "" {
			chunk.SourceURL = &doc.SourceURL
		}

		if err := s.store.Upsert(ctx, chunk); err != nil {
			return i, fmt.Errorf("store section %d: %w", i+1, err)
		}
	}

	s.logger.Info("document indexed", zap.String("document_id", doc.ID), zap.Int("chunks", len(paragraphs)))
	return len(paragraphs), nil
}

func (s *RAGService) embedDocument(ctx context.Context, text string) ([]float32, error) {
	if docEmbedder, ok := s.embedder.(DocumentEmbedder); ok {
		return docEmbedder.EmbedDocument(ctx, text)
	}
	return s.embedder.Embed(ctx, text)
}

// Stats reports knowledge base totals, degrading to zeroes when the store fails
func (s *RAGService) Stats(ctx context.Context) *models.KnowledgeStats {
	empty := &models.KnowledgeStats{LegalAreas: []string{}}
	if s.store == nil {
		return empty
	}
	stats, err := s.store.Stats(ctx)
	if err != nil || stats == nil {
		s.logger.Warn("failed to load knowledge base stats", zap.Error(err))
		return empty
	}
	if stats.LegalAreas == nil {
		stats.LegalAreas = []string{}
	}
	return stats
}
