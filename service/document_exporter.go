package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"lawerapp-backend/models"
	"lawerapp-backend/storage"

	"go.uber.org/zap"
)

// DocumentExporter persists generated document content to object storage
type DocumentExporter struct {
	storage storage.Storage
	logger  *zap.Logger
}

// NewDocumentExporter creates an exporter over store
func NewDocumentExporter(store storage.Storage, logger *zap.Logger) *DocumentExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentExporter{storage: store, logger: logger}
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Export stores the html rendition of a document. pdf and docx requests are
// stored as html and the requested format is echoed in the result.
// Storage failures are reported in the result, not as an error.
func (e *DocumentExporter) Export(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	format := req.Format
	if format == "" {
		format = models.FormatHTML
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, ErrMissingDocumentID
	}

	filename := exportFilename(req.Title) + ".html"
	content := strings.NewReader(req.Content)
	size := content.Size()

	key, err := e.storage.Upload(ctx, req.DocumentID, filename, content, size)
	if err != nil {
		e.logger.Error("document export failed", zap.String("document_id", req.DocumentID), zap.Error(err))
		return &models.ExportResult{Success: false, Format: format, Error: err.Error()}, nil
	}

	result := &models.ExportResult{
		Success:    true,
		StorageKey: key,
		FileSize:   size,
		Format:     format,
	}
	if url, err := e.storage.URL(ctx, key); err != nil {
		e.logger.Warn("failed to build document url", zap.String("key", key), zap.Error(err))
	} else {
		result.StorageURL = url
	}

	e.logger.Info("document exported",
		zap.String("document_id", req.DocumentID),
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return result, nil
}

func exportFilename(title string) string {
	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_")
	if name == "" {
		return "document"
	}
	runes := []rune(name)
	if len(runes) > 80 {
		name = string(runes[:80])
	}
	return name
}
