package handlers

import (
	"net/http"
	"strings"

	"lawerapp-backend/models"
	"lawerapp-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConsultationHandler handles HTTP requests for consultations
type ConsultationHandler struct {
	coordinator *service.Coordinator
	logger      *zap.Logger
}

// NewConsultationHandler creates a new consultation handler
func NewConsultationHandler(coordinator *service.Coordinator, logger *zap.Logger) *ConsultationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsultationHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// ConsultationRequest represents the request body for a consultation
type ConsultationRequest struct {
	Query   string               `json:"query" binding:"required"`
	Context *models.LegalContext `json:"context"`
}

// ConsultationResponse is a consultation answer with the context it ran under
type ConsultationResponse struct {
	*models.AgentResponse
	Context models.LegalContext `json:"context"`
}

// CreateConsultation handles POST /api/consultations
func (h *ConsultationHandler) CreateConsultation(c *gin.Context) {
	var req ConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "query must not be blank")
		return
	}

	var lc models.LegalContext
	if req.Context != nil {
		lc = *req.Context
	}
	lc = lc.WithDefaults()
	if code, msg, ok := validateContext(lc); !ok {
		respondError(c, http.StatusBadRequest, code, msg)
		return
	}

	// Detect the area when the caller did not pick one
	if lc.Area == "" {
		analysis, err := h.coordinator.AnalyzeQuery(c.Request.Context(), query)
		if err != nil {
			h.logger.Warn("legal area detection failed, defaulting to civil", zap.Error(err))
			lc.Area = models.AreaCivil
		} else {
			lc.Area = analysis.Area
		}
	}

	resp, err := h.coordinator.Route(c.Request.Context(), query, lc)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respondData(c, http.StatusOK, ConsultationResponse{AgentResponse: resp, Context: lc})
}

// AnalyzeQueryRequest represents the request body for query analysis
type AnalyzeQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// AnalyzeQuery handles POST /api/consultations/analyze
func (h *ConsultationHandler) AnalyzeQuery(c *gin.Context) {
	var req AnalyzeQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	analysis, err := h.coordinator.AnalyzeQuery(c.Request.Context(), strings.TrimSpace(req.Query))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, analysis)
}

// AgentHealth handles GET /api/agents/health
func (h *ConsultationHandler) AgentHealth(c *gin.Context) {
	report := h.coordinator.HealthCheck()
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success": report.Healthy,
		"data":    report,
	})
}

// validateContext rejects values outside the supported enums; an empty area is allowed
func validateContext(lc models.LegalContext) (code, message string, ok bool) {
	if lc.Area != "" && !lc.Area.Valid() {
		return "INVALID_LEGAL_AREA", "unknown legal area: " + string(lc.Area), false
	}
	if !lc.Jurisdiction.Valid() {
		return "INVALID_JURISDICTION", "unsupported jurisdiction: " + string(lc.Jurisdiction), false
	}
	if !lc.Urgency.Valid() {
		return "INVALID_URGENCY", "unknown urgency: " + string(lc.Urgency), false
	}
	return "", "", true
}
