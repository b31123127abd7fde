package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lawerapp-backend/models"
	"lawerapp-backend/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultEmbeddingDimensions matches text-embedding-004
const DefaultEmbeddingDimensions = 768

// KnowledgeChunkRepository handles database operations for knowledge chunks
type KnowledgeChunkRepository struct {
	db         *pgxpool.Pool
	dimensions int
}

// NewKnowledgeChunkRepository creates a new knowledge chunk repository.
// dimensions <= 0 selects DefaultEmbeddingDimensions.
func NewKnowledgeChunkRepository(db *pgxpool.Pool, dimensions int) *KnowledgeChunkRepository {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &KnowledgeChunkRepository{db: db, dimensions: dimensions}
}

var _ service.VectorStore = (*KnowledgeChunkRepository)(nil)

// formatVector formats an embedding vector as a pgvector literal
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (r *KnowledgeChunkRepository) checkDimensions(embedding []float32) error {
	if len(embedding) != r.dimensions {
		return fmt.Errorf("embedding must be %d dimensions, got %d", r.dimensions, len(embedding))
	}
	return nil
}

// buildSimilarityQuery renders the filtered cosine-similarity search and its args
func buildSimilarityQuery(vector string, q service.VectorQuery) (string, []any) {
	args := []any{vector}
	conditions := []string{}

	if q.Filters.LegalArea != "" {
		args = append(args, string(q.Filters.LegalArea))
		conditions = append(conditions, fmt.Sprintf("legal_area = $%d", len(args)))
	}
	if q.Filters.Jurisdiction != "" {
		args = append(args, string(q.Filters.Jurisdiction))
		conditions = append(conditions, fmt.Sprintf("jurisdiction = $%d", len(args)))
	}
	if q.Filters.DisputeType != "" {
		// Chunks without a dispute type apply to every dispute in their area
		args = append(args, q.Filters.DisputeType)
		conditions = append(conditions, fmt.Sprintf("(dispute_type = $%d OR dispute_type IS NULL)", len(args)))
	}
	args = append(args, q.Threshold)
	conditions = append(conditions, fmt.Sprintf("1 - (embedding <=> $1::vector) >= $%d", len(args)))
	args = append(args, q.Limit)

	query := fmt.Sprintf(`
		SELECT
			id,
			document_id,
			section,
			title,
			content,
			legal_area,
			jurisdiction,
			dispute_type,
			authority,
			source_type,
			source_url,
			metadata,
			updated_at,
			1 - (embedding <=> $1::vector) AS similarity
		FROM knowledge_chunks
		WHERE
			%s
		ORDER BY
			embedding <=> $1::vector
		LIMIT $%d`, strings.Join(conditions, "\n\t\t\tAND "), len(args))

	return query, args
}

// SimilaritySearch returns chunks by descending cosine similarity to vector
func (r *KnowledgeChunkRepository) SimilaritySearch(ctx context.Context, vector []float32, q service.VectorQuery) ([]models.KnowledgeChunk, error) {
	if err := r.checkDimensions(vector); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", q.Limit)
	}

	query, args := buildSimilarityQuery(formatVector(vector), q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.KnowledgeChunk
	for rows.Next() {
		var (
			chunk        models.KnowledgeChunk
			legalArea    string
			jurisdiction string
		)
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Section,
			&chunk.Title,
			&chunk.Content,
			&legalArea,
			&jurisdiction,
			&chunk.DisputeType,
			&chunk.Authority,
			&chunk.SourceType,
			&chunk.SourceURL,
			&chunk.Metadata,
			&chunk.UpdatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		chunk.LegalArea = models.LegalArea(legalArea)
		chunk.Jurisdiction = models.Jurisdiction(jurisdiction)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge chunks: %w", err)
	}

	return chunks, nil
}

// Upsert inserts a chunk or replaces the row with the same id
func (r *KnowledgeChunkRepository) Upsert(ctx context.Context, chunk models.KnowledgeChunk) error {
	if err := r.checkDimensions(chunk.Embedding); err != nil {
		return err
	}

	metadata := chunk.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	query := `
		INSERT INTO knowledge_chunks (
			id, document_id, section, title, content,
			legal_area, jurisdiction, dispute_type, authority,
			source_type, source_url, metadata, updated_at, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::vector)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			section = EXCLUDED.section,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			legal_area = EXCLUDED.legal_area,
			jurisdiction = EXCLUDED.jurisdiction,
			dispute_type = EXCLUDED.dispute_type,
			authority = EXCLUDED.authority,
			source_type = EXCLUDED.source_type,
			source_url = EXCLUDED.source_url,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			embedding = EXCLUDED.embedding`

	_, err := r.db.Exec(ctx, query,
		chunk.ID,
		chunk.DocumentID,
		chunk.Section,
		chunk.Title,
		chunk.Content,
		string(chunk.LegalArea),
		string(chunk.Jurisdiction),
		chunk.DisputeType,
		chunk.Authority,
		chunk.SourceType,
		chunk.SourceURL,
		metadata,
		chunk.UpdatedAt,
		formatVector(chunk.Embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge chunk: %w", err)
	}
	return nil
}

// DeleteDocument removes every chunk of a document
func (r *KnowledgeChunkRepository) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete knowledge document: %w", err)
	}
	return nil
}

// CountByDocument returns how many chunks are stored for a document
func (r *KnowledgeChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count knowledge chunks: %w", err)
	}
	return count, nil
}

// Stats aggregates document, chunk and area counts in a single query
func (r *KnowledgeChunkRepository) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT document_id),
			COUNT(*),
			COALESCE(array_agg(DISTINCT legal_area) FILTER (WHERE legal_area IS NOT NULL), '{}'),
			MAX(updated_at)
		FROM knowledge_chunks`

	var stats models.KnowledgeStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalDocuments,
		&stats.TotalChunks,
		&stats.LegalAreas,
		&stats.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge stats: %w", err)
	}
	return &stats, nil
}
