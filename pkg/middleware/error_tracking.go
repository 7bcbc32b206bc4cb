package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/errors"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SentryMiddleware attaches a Sentry hub to every request.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// ErrorHandler reports unexpected failures to Sentry after the handler ran.
// Domain rejections (4xx) only leave a breadcrumb.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		errors.AddBreadcrumbForRequest(c.Request.Method, c.Request.URL.Path, statusCode, duration)

		for _, err := range c.Errors {
			if errors.ShouldReportError(err.Err, statusCode) {
				captureError(c, err.Err, statusCode, duration)
			}
		}

		if statusCode >= http.StatusInternalServerError && len(c.Errors) == 0 {
			hub := hubFor(c)
			configureScope(hub, c, statusCode, duration)
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s %s", statusCode, c.Request.Method, c.Request.URL.Path))
		}
	}
}

// RecoveryWithSentry recovers from panics, reports them and answers 500.
func RecoveryWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				hub := hubFor(c)
				hub.Scope().SetRequest(c.Request)
				hub.Scope().SetContext("panic", map[string]interface{}{
					"value":      fmt.Sprintf("%v", err),
					"stacktrace": string(debug.Stack()),
				})
				hub.RecoverWithContext(c.Request.Context(), err)
				hub.Flush(2 * time.Second)

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}

func hubFor(c *gin.Context) *sentry.Hub {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

func configureScope(hub *sentry.Hub, c *gin.Context, statusCode int, duration time.Duration) {
	scope := hub.Scope()
	scope.SetRequest(c.Request)
	scope.SetLevel(sentryLevel(statusCode))
	scope.SetTag("http.method", c.Request.Method)
	scope.SetTag("http.status_code", fmt.Sprintf("%d", statusCode))
	scope.SetTag("endpoint", c.FullPath())
	if correlationID := GetCorrelationID(c); correlationID != "" {
		scope.SetTag("correlation_id", correlationID)
	}
	scope.SetContext("http", map[string]interface{}{
		"method":      c.Request.Method,
		"url":         c.Request.URL.String(),
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"remote_addr": c.ClientIP(),
	})
}

func captureError(c *gin.Context, err error, statusCode int, duration time.Duration) {
	hub := hubFor(c)
	configureScope(hub, c, statusCode, duration)
	hub.CaptureException(err)
}

func sentryLevel(statusCode int) sentry.Level {
	switch {
	case statusCode >= 500:
		return sentry.LevelError
	case statusCode == http.StatusTooManyRequests:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}
