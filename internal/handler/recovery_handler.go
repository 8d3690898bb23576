package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vozsegura/vozsegura-api/internal/models"
	"github.com/vozsegura/vozsegura-api/internal/service"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/response"
)

// RecoveryHandler exposes the password recovery flow. When exposeCodes is
// set (non-production only) the issued code is returned in the response
// meta; production deployments deliver it out of band.
type RecoveryHandler struct {
	service     *service.RecoveryService
	metrics     *service.MetricsService
	exposeCodes bool
}

// NewRecoveryHandler creates a new handler.
func NewRecoveryHandler(svc *service.RecoveryService, metrics *service.MetricsService, exposeCodes bool) *RecoveryHandler {
	return &RecoveryHandler{service: svc, metrics: metrics, exposeCodes: exposeCodes}
}

// Request godoc
// @Summary Start password recovery
// @Description Verify identity attributes and issue a one-time recovery code; a mismatch names the failing attribute
// @Tags Recovery
// @Accept json
// @Produce json
// @Param payload body models.RecoveryRequest true "Recovery payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/recovery [post]
func (h *RecoveryHandler) Request(c *gin.Context) {
	var req models.RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recovery payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	code, err := h.service.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRecoveryCode("issued")

	var meta map[string]interface{}
	if h.exposeCodes {
		meta = map[string]interface{}{"recovery_code": code}
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "identity verified, a recovery code has been issued"}, nil, meta)
}

// Complete godoc
// @Summary Complete password recovery
// @Description Redeem a recovery code for a password change
// @Tags Recovery
// @Accept json
// @Produce json
// @Param payload body models.RecoveryCompleteRequest true "Completion payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/recovery/complete [post]
func (h *RecoveryHandler) Complete(c *gin.Context) {
	var req models.RecoveryCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recovery payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	if err := h.service.Complete(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRecoveryCode("redeemed")
	response.NoContent(c)
}
