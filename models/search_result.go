package models

import "time"

// LegalSource represents a citable piece of legislation or case law
type LegalSource struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Type    string `json:"type"` // "law", "code", "court_decision", "regulation", "article"
	URL     string `json:"url,omitempty"`
	Article string `json:"article,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// SearchMetadata holds provenance details for a search result
type SearchMetadata struct {
	LegalArea    LegalArea    `json:"legal_area"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	LastUpdated  time.Time    `json:"last_updated"`
	Authority    string       `json:"authority"`
}

// SearchResult represents one ranked passage returned by knowledge search
type SearchResult struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Relevance float64         `json:"relevance"`
	Source    LegalSource     `json:"source"`
	Metadata  *SearchMetadata `json:"metadata,omitempty"`
}
