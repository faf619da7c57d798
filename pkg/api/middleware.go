package api

import (
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id on responses, and is honored on
// requests so callers can supply their own.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an id and puts a logger carrying it into
// the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := c.Request.Context()
		log := clog.FromContext(ctx).With("request_id", id)
		c.Request = c.Request.WithContext(clog.WithLogger(ctx, log))

		c.Next()
	}
}

// RequestLogger logs one line per request with method, path, status and
// duration.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := clog.FromContext(c.Request.Context())
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
