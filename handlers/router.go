package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every API route registered
func NewRouter(consultations *ConsultationHandler, documents *DocumentHandler, knowledge *KnowledgeHandler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		// Consultation endpoints
		api.POST("/consultations", consultations.CreateConsultation)
		api.POST("/consultations/analyze", consultations.AnalyzeQuery)
		api.GET("/agents/health", consultations.AgentHealth)

		// Template and document endpoints
		api.GET("/templates", documents.ListTemplates)
		api.GET("/templates/:id", documents.GetTemplate)
		api.POST("/documents/generate", documents.GenerateDocument)
		api.POST("/documents/export", documents.ExportDocument)
		api.GET("/documents/files/*key", documents.DownloadDocument)

		// Knowledge base endpoints
		api.GET("/knowledge/search", knowledge.Search)
		api.POST("/knowledge/documents", knowledge.AddDocument)
		api.POST("/knowledge/documents/upload", knowledge.UploadDocument)
		api.PUT("/knowledge/documents/:id", knowledge.UpdateDocument)
		api.GET("/knowledge/stats", knowledge.Stats)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
