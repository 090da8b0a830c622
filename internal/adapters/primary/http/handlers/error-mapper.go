package handlers

import (
	"errors"
	"net/http"

	"card-approval-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	var verr *domain.ValidationError

	switch {
	// Validation errors
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": domain.ErrValidation.Error(), "details": verr.Fields})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	// Not found errors
	case errors.Is(err, domain.ErrPredictionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrModelNotReady),
		errors.Is(err, domain.ErrAuditLogDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	// Per-request inference failures
	case errors.Is(err, domain.ErrPredictionFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
