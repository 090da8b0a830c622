package handlers

import (
	"card-approval-service/internal/config"
	"card-approval-service/internal/core/services"
	"card-approval-service/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	predictionSvc *services.PredictionService
	modelSvc      *services.ModelService
	healthSvc     *services.HealthService
	metrics       *observability.Metrics
	app           config.AppConfig
}

func New(
	predictionSvc *services.PredictionService,
	modelSvc *services.ModelService,
	healthSvc *services.HealthService,
	metrics *observability.Metrics,
	app config.AppConfig,
) *Handler {
	return &Handler{
		predictionSvc: predictionSvc,
		modelSvc:      modelSvc,
		healthSvc:     healthSvc,
		metrics:       metrics,
		app:           app,
	}
}

// RegisterRoutes mounts the prediction API. predictMiddleware runs only in
// front of the predict endpoint.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, predictMiddleware ...gin.HandlerFunc) {
	// Predictions
	r.POST("/predict", append(predictMiddleware, h.Predict)...)
	r.GET("/model-info", h.GetModelInfo)

	// Prediction audit log
	r.GET("/predictions", h.ListPredictions)
	r.GET("/predictions/:id", h.GetPrediction)
}

// RegisterProbes mounts the root document and the health probes.
func (h *Handler) RegisterProbes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/health/live", h.Live)
}
