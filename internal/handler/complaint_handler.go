package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vozsegura/vozsegura-api/internal/models"
	"github.com/vozsegura/vozsegura-api/internal/service"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/response"
)

// ComplaintHandler wires HTTP endpoints to the complaint service.
type ComplaintHandler struct {
	service *service.ComplaintService
	metrics *service.MetricsService
}

// NewComplaintHandler creates a new handler.
func NewComplaintHandler(svc *service.ComplaintService, metrics *service.MetricsService) *ComplaintHandler {
	return &ComplaintHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary File a complaint
// @Description Files a complaint and returns its anonymous tracking code
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body service.ComplaintCreateRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ComplaintCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid complaint payload"))
		return
	}

	complaint, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordComplaintFiled(complaint.Category)

	response.Created(c, complaint)
}

// List godoc
// @Summary List complaints
// @Description Reporters see their own cases, supervisors their assigned ones
// @Tags Complaints
// @Produce json
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param search query string false "Search title and tracking code"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ComplaintFilter{Search: c.Query("search")}
	if status := c.Query("status"); status != "" {
		s := models.ComplaintStatus(status)
		filter.Status = &s
	}
	if category := c.Query("category"); category != "" {
		cat := models.Category(category)
		filter.Category = &cat
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	complaints, pagination, err := h.service.List(c.Request.Context(), claims.UserID, claims.Role, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaints, pagination)
}

// Get godoc
// @Summary Get a complaint
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	complaint, err := h.service.Get(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}

// UpdateStatus godoc
// @Summary Change complaint status
// @Description Moves a case through its lifecycle; assigned supervisor or admin only
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body object true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		Status models.ComplaintStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	complaint, err := h.service.UpdateStatus(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}

// Reassign godoc
// @Summary Reassign a complaint
// @Description Hands the case to another supervisor; admin only
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body object true "Supervisor ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/assign [patch]
func (h *ComplaintHandler) Reassign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		SupervisorID string `json:"supervisor_id" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	complaint, err := h.service.Reassign(c.Request.Context(), claims.UserID, c.Param("id"), req.SupervisorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, complaint, nil)
}
