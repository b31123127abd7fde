package handlers

import (
	"errors"
	"net/http"

	"lawerapp-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericFailureMessage = "Не удалось выполнить запрос. Попробуйте позже."

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondServiceError maps a service error onto the response envelope.
// Upstream failures get a generic message; the cause is only logged.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	code := service.ErrorCode(err)
	switch code {
	case "VALIDATION_ERROR":
		var validationErr *service.ValidationError
		errors.As(err, &validationErr)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":           code,
				"message":        err.Error(),
				"missing_fields": validationErr.Missing,
			},
		})
	case "TEMPLATE_NOT_FOUND":
		respondError(c, http.StatusNotFound, code, err.Error())
	case "UNSUPPORTED_FORMAT":
		respondError(c, http.StatusBadRequest, code, err.Error())
	case "INTERNAL_ERROR":
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, code, genericFailureMessage)
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
		respondError(c, http.StatusBadGateway, code, genericFailureMessage)
	}
}
