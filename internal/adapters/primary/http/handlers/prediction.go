package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"card-approval-service/internal/adapters/primary/http/dto"
	"card-approval-service/internal/adapters/primary/http/middleware"
	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) Predict(c *gin.Context) {
	var req dto.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields, ok := dto.BindingFieldErrors(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": domain.ErrValidation.Error(), "details": fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	input := req.ToDomain()
	entry := log.WithContext(ctx).WithField("request_id", c.GetString(middleware.ContextRequestID))
	if input.ID != nil {
		entry = entry.WithField("customer_id", *input.ID)
	}

	p, err := h.predictionSvc.Predict(ctx, input, c.GetString(middleware.ContextRequestID))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			entry.WithError(err).Info("prediction request rejected")
		} else {
			entry.WithError(err).Error("prediction failed")
		}
		mapDomainError(c, err)
		return
	}

	entry.WithFields(log.Fields{
		"decision":    p.Decision,
		"probability": p.Probability,
		"income":      input.Income,
		"cached":      p.Cached,
	}).Info("prediction completed")

	if h.metrics != nil {
		h.metrics.ObservePrediction(p.Decision, string(p.ProbabilitySource), p.Probability, p.Cached)
	}
	c.JSON(http.StatusOK, dto.ToPredictionResponse(p))
}

func (h *Handler) GetModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.modelSvc.Info())
}

func (h *Handler) GetPrediction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prediction id"})
		return
	}

	p, err := h.predictionSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPredictionLogResponse(p))
}

func (h *Handler) ListPredictions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	filter := ports.PredictionListFilter{
		ModelVersion: c.Query("version"),
		Decision:     c.Query("decision"),
		Limit:        limit,
		Offset:       offset,
	}
	items, total, err := h.predictionSvc.List(c.Request.Context(), filter)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListPredictionsResponse(items, total, max(offset, 0)))
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
