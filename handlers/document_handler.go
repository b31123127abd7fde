package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"lawerapp-backend/models"
	"lawerapp-backend/service"
	"lawerapp-backend/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentHandler handles HTTP requests for templates and generated documents
type DocumentHandler struct {
	templates *service.TemplateRegistry
	generator *service.DocumentGenerator
	exporter  *service.DocumentExporter
	storage   storage.Storage
	logger    *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	templates *service.TemplateRegistry,
	generator *service.DocumentGenerator,
	exporter *service.DocumentExporter,
	store storage.Storage,
	logger *zap.Logger,
) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{
		templates: templates,
		generator: generator,
		exporter:  exporter,
		storage:   store,
		logger:    logger,
	}
}

// ListTemplates handles GET /api/templates
func (h *DocumentHandler) ListTemplates(c *gin.Context) {
	area := models.LegalArea(c.Query("area"))
	if area == "" {
		respondData(c, http.StatusOK, h.templates.List())
		return
	}
	if !area.Valid() {
		respondError(c, http.StatusBadRequest, "INVALID_LEGAL_AREA", "unknown legal area: "+string(area))
		return
	}
	respondData(c, http.StatusOK, h.templates.ListByArea(area))
}

// GetTemplate handles GET /api/templates/:id
func (h *DocumentHandler) GetTemplate(c *gin.Context) {
	tmpl, err := h.templates.Get(c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, tmpl)
}

// GenerateDocumentRequest represents the request body for document generation
type GenerateDocumentRequest struct {
	TemplateID string               `json:"template_id" binding:"required"`
	Data       map[string]any       `json:"data"`
	Context    *models.LegalContext `json:"context"`
	Format     models.OutputFormat  `json:"format"`
}

// GenerateDocument handles POST /api/documents/generate
func (h *DocumentHandler) GenerateDocument(c *gin.Context) {
	var req GenerateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	tmpl, err := h.templates.Get(req.TemplateID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	// The template's area applies unless the caller pinned one
	lc := models.LegalContext{Area: tmpl.LegalArea}
	if req.Context != nil {
		lc = *req.Context
		if lc.Area == "" {
			lc.Area = tmpl.LegalArea
		}
	}
	lc = lc.WithDefaults()
	if code, msg, ok := validateContext(lc); !ok {
		respondError(c, http.StatusBadRequest, code, msg)
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), req.TemplateID, req.Data, lc, service.GenerateOptions{Format: req.Format})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// ExportDocument handles POST /api/documents/export
func (h *DocumentHandler) ExportDocument(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.exporter.Export(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrMissingDocumentID) {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"data":    result,
			"error": gin.H{
				"code":    "EXPORT_FAILED",
				"message": "Failed to store document",
			},
		})
		return
	}
	respondData(c, http.StatusCreated, result)
}

// DownloadDocument handles GET /api/documents/files/*key
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		respondError(c, http.StatusBadRequest, "INVALID_KEY", "Invalid storage key")
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
			return
		}
		h.logger.Error("document download failed", zap.String("key", key), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DOWNLOAD_FAILED", "Failed to download document")
		return
	}
	defer reader.Close()

	contentType := "text/html; charset=utf-8"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", path.Base(key)))
	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}
