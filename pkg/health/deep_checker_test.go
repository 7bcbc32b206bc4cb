package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/health"
	"github.com/JesusSantiago31/API-GPS/pkg/resilience"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBreaker string

func (b fixedBreaker) State() string { return string(b) }

func TestDeepChecker_CheckWithNoDependencies(t *testing.T) {
	checker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())

	status := checker.Check(context.Background())

	assert.Equal(t, health.StatusHealthy, status.Status)
	assert.Empty(t, status.Dependencies)
	assert.Empty(t, status.Breakers)
	assert.False(t, status.CheckedAt.IsZero())
}

func TestDeepChecker_ClosedBreakerIsHealthy(t *testing.T) {
	checker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:             "ors-driving-car",
		FailureThreshold: 5,
	})

	checker.AddCircuitBreaker("ors-driving-car", breaker)
	status := checker.Check(context.Background())

	require.Len(t, status.Breakers, 1)
	b := status.Breakers["ors-driving-car"]
	assert.Equal(t, "closed", b.State)
	assert.True(t, b.Allows)
	assert.Equal(t, health.StatusHealthy, status.Status)
}

func TestDeepChecker_OpenBreakerDegrades(t *testing.T) {
	checker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
	checker.AddCircuitBreaker("ors-foot-walking", fixedBreaker("open"))
	checker.AddCircuitBreaker("ors-geocode", fixedBreaker("half-open"))

	status := checker.Check(context.Background())

	assert.Equal(t, health.StatusDegraded, status.Status)
	assert.False(t, status.Breakers["ors-foot-walking"].Allows)
	assert.True(t, status.Breakers["ors-geocode"].Allows)
}

func TestDeepChecker_NilBreakerIgnored(t *testing.T) {
	checker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
	checker.AddCircuitBreaker("disabled", nil)

	assert.Empty(t, checker.Check(context.Background()).Breakers)
}

func TestDeepChecker_DependencyFailures(t *testing.T) {
	tests := []struct {
		name     string
		critical bool
		want     string
	}{
		{"critical failure", true, health.StatusUnhealthy},
		{"optional failure", false, health.StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
			checker.AddDependency("redis", tt.critical, func(ctx context.Context) error {
				return errors.New("connection refused")
			})

			status := checker.Check(context.Background())

			assert.Equal(t, tt.want, status.Status)
			dep := status.Dependencies["redis"]
			assert.Equal(t, health.StatusUnhealthy, dep.Status)
			assert.Contains(t, dep.Message, "connection refused")
			assert.Equal(t, tt.critical, dep.Critical)
			assert.Equal(t, !tt.critical, checker.IsReady(context.Background()))
		})
	}
}

func TestDeepChecker_DependencyTimeout(t *testing.T) {
	cfg := health.DefaultDeepCheckerConfig()
	cfg.Timeout = 20 * time.Millisecond
	checker := health.NewDeepChecker(cfg)
	checker.AddDependency("slow", false, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := checker.Check(context.Background())

	assert.Equal(t, health.StatusDegraded, status.Status)
	assert.Contains(t, status.Dependencies["slow"].Message, "deadline exceeded")
}

func TestDeepChecker_CachesResults(t *testing.T) {
	cfg := health.DefaultDeepCheckerConfig()
	cfg.CacheTTL = time.Minute
	checker := health.NewDeepChecker(cfg)

	var calls atomic.Int32
	checker.AddDependency("redis", true, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	first := checker.Check(context.Background())
	second := checker.Check(context.Background())

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeepChecker_GinHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
	checker.AddDependency("redis", true, func(ctx context.Context) error {
		return errors.New("down")
	})

	router := gin.New()
	router.GET("/health/deep", checker.GinHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/deep", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body health.DeepHealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, health.StatusUnhealthy, body.Status)
}
