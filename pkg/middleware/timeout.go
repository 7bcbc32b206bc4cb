package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/JesusSantiago31/API-GPS/pkg/config"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestTimeout bounds every request with the route's configured deadline.
// Handlers run on the request goroutine and observe the deadline through the
// request context; if the deadline expires before anything was written the
// middleware answers 504.
func RequestTimeout(cfg *config.TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		timeout := cfg.TimeoutForRoute(c.Request.Method, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}

		c.Header("X-Timeout", "true")
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
			"error": "Request timeout",
		})

		logger.WithContext(ctx).Warn("Request timeout",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Duration("timeout", timeout),
		)
	}
}
