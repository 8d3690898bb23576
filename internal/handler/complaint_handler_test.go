package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/vozsegura/vozsegura-api/internal/middleware"
	"github.com/vozsegura/vozsegura-api/internal/models"
)

func TestComplaintHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewComplaintHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/complaints", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComplaintHandlerUpdateStatusInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewComplaintHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/complaints/abc/status", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "sup-1", Role: models.RoleSupervisor})

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComplaintHandlerReassignRequiresUUID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewComplaintHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/complaints/abc/assign", bytes.NewReader([]byte(`{"supervisor_id":"not-a-uuid"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Reassign(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
