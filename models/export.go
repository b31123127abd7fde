package models

// ExportRequest represents a generated document handed to the export boundary
type ExportRequest struct {
	DocumentID string            `json:"document_id" binding:"required"`
	Title      string            `json:"title"`
	Content    string            `json:"content" binding:"required"`
	Format     OutputFormat      `json:"format"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportResult represents the outcome of persisting a document rendition
type ExportResult struct {
	Success    bool         `json:"success"`
	StorageKey string       `json:"storage_key,omitempty"`
	StorageURL string       `json:"storage_url,omitempty"`
	FileSize   int64        `json:"file_size"`
	Format     OutputFormat `json:"format"`
	Error      string       `json:"error,omitempty"`
}
