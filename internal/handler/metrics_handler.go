package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vozsegura/vozsegura-api/internal/service"
	"github.com/vozsegura/vozsegura-api/pkg/response"
)

// MetricsHandler exposes aggregated system metrics to administrators.
// The raw Prometheus endpoint is mounted separately in the router.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler creates a new handler.
func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: svc}
}

// Snapshot godoc
// @Summary System metrics snapshot
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/snapshot [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Snapshot(), nil)
}
