package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozsegura/vozsegura-api/internal/middleware"
	"github.com/vozsegura/vozsegura-api/internal/models"
)

func TestParseAuditFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit?actor_id=abc&action=LOGIN&date_from=2026-01-15&date_to=2026-02-01T10:00:00Z&limit=100&offset=25", nil)
	c.Request = req

	filter, err := parseAuditFilter(c)
	require.NoError(t, err)
	assert.Equal(t, "abc", filter.ActorID)
	assert.Equal(t, "LOGIN", filter.Action)
	require.NotNil(t, filter.DateFrom)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), *filter.DateFrom)
	require.NotNil(t, filter.DateTo)
	assert.Equal(t, 100, filter.Limit)
	assert.Equal(t, 25, filter.Offset)
}

func TestParseAuditFilterBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit?date_from=yesterday", nil)
	c.Request = req

	_, err := parseAuditFilter(c)
	assert.Error(t, err)
}

func TestAuditHandlerExportRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuditHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit/export?format=xlsx", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerQueryWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuditHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/audit", nil)
	c.Request = req

	handler.Query(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
