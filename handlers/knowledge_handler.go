package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"lawerapp-backend/models"
	"lawerapp-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxUploadSize = 5 * 1024 * 1024 // 5MB of legal text

// KnowledgeHandler handles HTTP requests for the legal knowledge base
type KnowledgeHandler struct {
	rag           *service.RAGService
	logger        *zap.Logger
	maxUploadSize int64
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(rag *service.RAGService, logger *zap.Logger) *KnowledgeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeHandler{
		rag:           rag,
		logger:        logger,
		maxUploadSize: defaultMaxUploadSize,
	}
}

// Search handles GET /api/knowledge/search
func (h *KnowledgeHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "q is required")
		return
	}

	lc := models.LegalContext{
		Area:        models.LegalArea(c.Query("area")),
		DisputeType: c.Query("dispute_type"),
	}.WithDefaults()
	if code, msg, ok := validateContext(lc); !ok {
		respondError(c, http.StatusBadRequest, code, msg)
		return
	}

	opts := service.DefaultSearchOptions()
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 50 {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 50")
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			respondError(c, http.StatusBadRequest, "INVALID_THRESHOLD", "threshold must be in (0, 1]")
			return
		}
		opts.Threshold = threshold
	}
	if raw := c.Query("include_metadata"); raw != "" {
		opts.IncludeMetadata = raw == "true" || raw == "1"
	}

	results, err := h.rag.Search(c.Request.Context(), query, lc, opts)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, results)
}

// AddDocument handles POST /api/knowledge/documents
func (h *KnowledgeHandler) AddDocument(c *gin.Context) {
	var doc models.KnowledgeDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	h.ingest(c, doc, false, http.StatusCreated)
}

// UpdateKnowledgeDocumentRequest represents the request body for replacing a document
type UpdateKnowledgeDocumentRequest struct {
	Title        string              `json:"title" binding:"required"`
	Content      string              `json:"content" binding:"required"`
	LegalArea    models.LegalArea    `json:"legal_area" binding:"required"`
	Jurisdiction models.Jurisdiction `json:"jurisdiction"`
	DisputeType  string              `json:"dispute_type"`
	Authority    string              `json:"authority"`
	SourceType   string              `json:"source_type"`
	SourceURL    string              `json:"source_url"`
}

// UpdateDocument handles PUT /api/knowledge/documents/:id
func (h *KnowledgeHandler) UpdateDocument(c *gin.Context) {
	var req UpdateKnowledgeDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	doc := models.KnowledgeDocument{
		ID:           c.Param("id"),
		Title:        req.Title,
		Content:      req.Content,
		LegalArea:    req.LegalArea,
		Jurisdiction: req.Jurisdiction,
		DisputeType:  req.DisputeType,
		Authority:    req.Authority,
		SourceType:   req.SourceType,
		SourceURL:    req.SourceURL,
	}
	h.ingest(c, doc, true, http.StatusOK)
}

// UploadDocument handles POST /api/knowledge/documents/upload with a multipart text file
func (h *KnowledgeHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE", "File exceeds the maximum upload size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to read uploaded file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to read uploaded file")
		return
	}

	doc := models.KnowledgeDocument{
		ID:           c.PostForm("id"),
		Title:        c.PostForm("title"),
		Content:      string(content),
		LegalArea:    models.LegalArea(c.PostForm("legal_area")),
		Jurisdiction: models.Jurisdiction(c.PostForm("jurisdiction")),
		DisputeType:  c.PostForm("dispute_type"),
		Authority:    c.PostForm("authority"),
		SourceType:   c.PostForm("source_type"),
		SourceURL:    c.PostForm("source_url"),
	}
	if doc.ID == "" || doc.Title == "" || doc.LegalArea == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "id, title and legal_area are required")
		return
	}
	h.ingest(c, doc, c.PostForm("update") == "true", http.StatusCreated)
}

func (h *KnowledgeHandler) ingest(c *gin.Context, doc models.KnowledgeDocument, update bool, status int) {
	if !doc.LegalArea.Valid() {
		respondError(c, http.StatusBadRequest, "INVALID_LEGAL_AREA", "unknown legal area: "+string(doc.LegalArea))
		return
	}

	var (
		chunks int
		err    error
	)
	if update {
		chunks, err = h.rag.UpdateDocument(c.Request.Context(), doc)
	} else {
		chunks, err = h.rag.AddDocument(c.Request.Context(), doc)
	}
	if err != nil {
		if errors.Is(err, service.ErrNoUsableChunks) {
			respondError(c, http.StatusUnprocessableEntity, "NO_USABLE_CHUNKS", service.ErrNoUsableChunks.Error())
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}

	respondData(c, status, gin.H{
		"document_id": doc.ID,
		"chunks":      chunks,
	})
}

// Stats handles GET /api/knowledge/stats
func (h *KnowledgeHandler) Stats(c *gin.Context) {
	respondData(c, http.StatusOK, h.rag.Stats(c.Request.Context()))
}
