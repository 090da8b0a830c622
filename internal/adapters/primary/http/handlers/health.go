package handlers

import (
	"net/http"

	"card-approval-service/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
)

// Health always answers 200; degradation is reported in the body.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthSvc.Check(c.Request.Context()))
}

// Ready fails until the model is loaded.
func (h *Handler) Ready(c *gin.Context) {
	if !h.healthSvc.Ready() {
		c.JSON(http.StatusServiceUnavailable, dto.ProbeResponse{Status: "not ready"})
		return
	}
	c.JSON(http.StatusOK, dto.ProbeResponse{Status: "ready"})
}

func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ProbeResponse{Status: "alive"})
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.RootResponse{
		Name:    h.app.Name,
		Version: h.app.Version,
		Status:  "running",
		Health:  "/health",
		Metrics: "/metrics",
	})
}
