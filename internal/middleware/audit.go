package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vozsegura/vozsegura-api/internal/models"
	"github.com/vozsegura/vozsegura-api/internal/service"
)

// Audit records an audit entry after successful requests on routes whose
// handlers do not write domain-specific entries themselves.
func Audit(auditService *service.AuditService, action, resourceTable string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var actorID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			user := claims.(*models.JWTClaims)
			actorID = &user.UserID
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		auditService.Record(c.Request.Context(), &models.AuditEntry{
			ActorID:       actorID,
			Action:        action,
			ResourceTable: &resourceTable,
			Detail:        detail,
			IPAddress:     c.ClientIP(),
			UserAgent:     c.GetHeader("User-Agent"),
			Success:       true,
		})
	}
}
