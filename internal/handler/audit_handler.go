package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vozsegura/vozsegura-api/internal/models"
	"github.com/vozsegura/vozsegura-api/internal/service"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/response"
)

// AuditHandler exposes the audit trail to administrators. Queries and
// exports are themselves recorded on the trail.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// Query godoc
// @Summary Query the audit trail
// @Tags Audit
// @Produce json
// @Param actor_id query string false "Filter by actor"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource table"
// @Param date_from query string false "RFC3339 or YYYY-MM-DD lower bound"
// @Param date_to query string false "RFC3339 or YYYY-MM-DD upper bound"
// @Param limit query int false "Limit (max 500)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) Query(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := parseAuditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.service.Find(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.service.Record(c.Request.Context(), &models.AuditEntry{
		ActorID:   &claims.UserID,
		Action:    models.AuditActionAuditQuery,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   true,
	})

	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"total_count": total})
}

// Export godoc
// @Summary Export the audit trail
// @Description Renders matching entries as CSV or PDF
// @Tags Audit
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Router /audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := parseAuditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")

	var data []byte
	var contentType string
	switch format {
	case "csv":
		data, err = h.service.ExportCSV(c.Request.Context(), filter)
		contentType = "text/csv"
	case "pdf":
		data, err = h.service.ExportPDF(c.Request.Context(), filter)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	h.service.Record(c.Request.Context(), &models.AuditEntry{
		ActorID:   &claims.UserID,
		Action:    models.AuditActionAuditExport,
		Detail:    []byte(fmt.Sprintf(`{"format":%q}`, format)),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   true,
	})

	filename := fmt.Sprintf("audit-trail-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func parseAuditFilter(c *gin.Context) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		ActorID:       c.Query("actor_id"),
		Action:        c.Query("action"),
		ResourceTable: c.Query("resource"),
	}

	if raw := c.Query("date_from"); raw != "" {
		ts, err := parseAuditDate(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date_from")
		}
		filter.DateFrom = &ts
	}
	if raw := c.Query("date_to"); raw != "" {
		ts, err := parseAuditDate(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date_to")
		}
		filter.DateTo = &ts
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return filter, nil
}

func parseAuditDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
