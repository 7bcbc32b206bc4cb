package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// waitOrDone blocks for d or until the request deadline, mirroring handlers
// that pass the request context to outbound calls.
func waitOrDone(c *gin.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.Request.Context().Done():
		return false
	}
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("should timeout after configured duration", func(t *testing.T) {
		timeoutConfig := &config.TimeoutConfig{
			DefaultRequestTimeout: 1,
			RouteOverrides:        make(map[string]int),
		}

		router := gin.New()
		router.Use(RequestTimeout(timeoutConfig))
		router.POST("/calculate_route", func(c *gin.Context) {
			if waitOrDone(c, 3*time.Second) {
				c.JSON(http.StatusOK, gin.H{"message": "success"})
			}
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/calculate_route", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "Request timeout")
		assert.Equal(t, "true", w.Header().Get("X-Timeout"))
	})

	t.Run("should not timeout if request completes in time", func(t *testing.T) {
		timeoutConfig := &config.TimeoutConfig{
			DefaultRequestTimeout: 2,
			RouteOverrides:        make(map[string]int),
		}

		router := gin.New()
		router.Use(RequestTimeout(timeoutConfig))
		router.POST("/geocode", func(c *gin.Context) {
			waitOrDone(c, 50*time.Millisecond)
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/geocode", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "success")
		assert.Empty(t, w.Header().Get("X-Timeout"))
	})

	t.Run("should use route-specific timeout override", func(t *testing.T) {
		timeoutConfig := &config.TimeoutConfig{
			DefaultRequestTimeout: 1,
			RouteOverrides: map[string]int{
				"POST:/calculate_route": 3,
			},
		}

		router := gin.New()
		router.Use(RequestTimeout(timeoutConfig))
		router.POST("/calculate_route", func(c *gin.Context) {
			deadline, ok := c.Request.Context().Deadline()
			assert.True(t, ok)
			assert.Greater(t, time.Until(deadline), 2*time.Second)
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/calculate_route", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should not overwrite a response written before the deadline", func(t *testing.T) {
		timeoutConfig := &config.TimeoutConfig{DefaultRequestTimeout: 1}

		router := gin.New()
		router.Use(RequestTimeout(timeoutConfig))
		router.POST("/calculate_route", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no route"})
			<-c.Request.Context().Done()
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/calculate_route", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("X-Timeout"))
	})

	t.Run("should propagate correlation ID on timeout", func(t *testing.T) {
		timeoutConfig := &config.TimeoutConfig{DefaultRequestTimeout: 1}

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(RequestTimeout(timeoutConfig))
		router.POST("/calculate_route", func(c *gin.Context) {
			<-c.Request.Context().Done()
		})

		req := httptest.NewRequest(http.MethodPost, "/calculate_route", nil)
		req.Header.Set(CorrelationIDHeader, "550e8400-e29b-41d4-a716-446655440000")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", w.Header().Get(CorrelationIDHeader))
	})
}
