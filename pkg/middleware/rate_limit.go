package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/common"
	"github.com/JesusSantiago31/API-GPS/pkg/config"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter decides whether a client may call an endpoint.
type Limiter interface {
	RuleFor(endpoint string) ratelimit.Rule
	Allow(ctx context.Context, endpointKey, identityKey string, rule ratelimit.Rule) (ratelimit.Result, error)
}

// RateLimit charges each client IP for the provider calls its requests
// can trigger. Limiter failures fail open.
func RateLimit(limiter Limiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	if isNilLimiter(limiter) || !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		endpointPath := c.FullPath()
		if endpointPath == "" {
			endpointPath = c.Request.URL.Path
		}

		endpointKey := fmt.Sprintf("%s:%s", c.Request.Method, endpointPath)

		identity := c.ClientIP()
		if identity == "" {
			identity = "unknown"
		}

		rule := limiter.RuleFor(endpointKey)
		if rule.Limit <= 0 {
			c.Next()
			return
		}

		result, err := limiter.Allow(c.Request.Context(), endpointKey, identity, rule)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limit evaluation failed",
				zap.String("endpoint", endpointKey),
				zap.String("identity", identity),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		remaining := result.Remaining
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		resetSeconds := int(result.ResetAfter.Round(time.Second) / time.Second)
		if resetSeconds < 0 {
			resetSeconds = 0
		}
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSeconds))
		c.Header("X-RateLimit-Cost", strconv.Itoa(rule.Cost))

		if result.Allowed {
			c.Next()
			return
		}

		retrySeconds := int(result.RetryAfter.Round(time.Second) / time.Second)
		if retrySeconds <= 0 {
			retrySeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retrySeconds))

		logger.WarnContext(c.Request.Context(), "rate limit exceeded",
			zap.String("endpoint", endpointKey),
			zap.String("identity", identity),
			zap.Int("retry_after_seconds", retrySeconds),
			zap.Int("cost", rule.Cost),
		)

		common.AppErrorResponse(c, common.NewAppError(http.StatusTooManyRequests,
			fmt.Sprintf("too many route requests, retry in %d seconds", retrySeconds), nil).
			WithErrorCode("rate_limited").
			WithDetails(map[string]interface{}{"retry_after": retrySeconds, "endpoint": endpointKey}))
		c.Abort()
	}
}

func isNilLimiter(l Limiter) bool {
	if l == nil {
		return true
	}
	concrete, ok := l.(*ratelimit.Limiter)
	return ok && concrete == nil
}
