package middleware

import (
	"time"

	"news-social/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and logs it once finished.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		id := ctx.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set("request_id", id)
		ctx.Header(RequestIDHeader, id)

		ctx.Next()

		fields := map[string]interface{}{
			"requestId": id,
			"method":    ctx.Request.Method,
			"path":      ctx.Request.URL.Path,
			"status":    ctx.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  ctx.ClientIP(),
		}
		entry := logger.GetLogger().WithFields(fields)
		switch {
		case len(ctx.Errors) > 0:
			entry.WithField("errors", ctx.Errors.String()).Error("request failed")
		case ctx.Writer.Status() >= 500:
			entry.Warn("request completed with server error")
		default:
			entry.Info("request completed")
		}
	}
}
