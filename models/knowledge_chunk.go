package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeDocument represents a legal text submitted for ingestion into the knowledge base
type KnowledgeDocument struct {
	ID           string       `json:"id" binding:"required"`
	Title        string       `json:"title" binding:"required"`
	Content      string       `json:"content" binding:"required"`
	LegalArea    LegalArea    `json:"legal_area" binding:"required"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	DisputeType  string       `json:"dispute_type,omitempty"`
	Authority    string       `json:"authority"`
	SourceType   string       `json:"source_type"` // "law", "code", "court_decision", "regulation", "article"
	SourceURL    string       `json:"source_url,omitempty"`
}

// KnowledgeChunk represents one embedded paragraph of a knowledge document
type KnowledgeChunk struct {
	ID           uuid.UUID      `json:"id"`
	DocumentID   string         `json:"document_id"`
	Section      int            `json:"section"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	LegalArea    LegalArea      `json:"legal_area"`
	Jurisdiction Jurisdiction   `json:"jurisdiction"`
	DisputeType  *string        `json:"dispute_type,omitempty"`
	Authority    string         `json:"authority"`
	SourceType   string         `json:"source_type"`
	SourceURL    *string        `json:"source_url,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Embedding    []float32      `json:"-"`
	Similarity   float64        `json:"similarity,omitempty"` // Cosine similarity to the query vector
}

// KnowledgeStats summarizes the contents of the knowledge base
type KnowledgeStats struct {
	TotalDocuments int        `json:"total_documents"`
	TotalChunks    int        `json:"total_chunks"`
	LegalAreas     []string   `json:"legal_areas"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}
