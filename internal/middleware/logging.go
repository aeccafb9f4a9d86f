package middleware

import (
	"time"

	"auth-portal/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger emits one structured log line per request. Session ids and
// query strings are never logged.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   c.ClientIP(),
		}
		if uid := c.GetString("userID"); uid != "" {
			fields["user_id"] = uid
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields)
		case status >= 400:
			logger.Warn("request", fields)
		default:
			logger.Info("request", fields)
		}
	}
}
