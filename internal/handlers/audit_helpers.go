package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/observability"
	"chat-sync-service/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(observability.RequestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(observability.RequestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, action, resource string, details map[string]string) {
	if emitter == nil {
		return
	}
	emitter.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:     "INFO",
		Action:    action,
		Resource:  resource,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
		Details:   details,
	})
}
