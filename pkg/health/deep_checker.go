package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status values reported by the deep checker.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Breaker is the part of a circuit breaker the checker reads.
type Breaker interface {
	State() string
}

// DependencyStatus represents the health status of a single dependency
type DependencyStatus struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency_ms"`
	Message   string        `json:"message,omitempty"`
	Critical  bool          `json:"critical"`
	CheckedAt time.Time     `json:"checked_at"`
}

// DeepHealthStatus represents the complete health status of the service
type DeepHealthStatus struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version,omitempty"`
	Uptime       time.Duration               `json:"uptime_seconds"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
	Breakers     map[string]BreakerStatus    `json:"circuit_breakers,omitempty"`
	CheckedAt    time.Time                   `json:"checked_at"`
}

// BreakerStatus represents the status of a circuit breaker
type BreakerStatus struct {
	Name   string `json:"name"`
	State  string `json:"state"` // "closed", "half-open", "open"
	Allows bool   `json:"allows_requests"`
}

type dependency struct {
	check    CheckFunc
	critical bool
}

// DeepChecker reports dependency reachability and the state of the
// provider circuit breakers. Results are cached for CacheTTL.
type DeepChecker struct {
	deps     map[string]dependency
	breakers map[string]Breaker
	version  string
	start    time.Time
	timeout  time.Duration
	cacheTTL time.Duration

	mu          sync.RWMutex
	lastResult  *DeepHealthStatus
	lastChecked time.Time
}

// DeepCheckerConfig holds configuration for the deep checker
type DeepCheckerConfig struct {
	Version  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultDeepCheckerConfig returns sensible defaults
func DefaultDeepCheckerConfig() DeepCheckerConfig {
	return DeepCheckerConfig{
		Version:  "unknown",
		Timeout:  5 * time.Second,
		CacheTTL: 10 * time.Second,
	}
}

// NewDeepChecker creates a new deep health checker
func NewDeepChecker(config DeepCheckerConfig) *DeepChecker {
	return &DeepChecker{
		deps:     make(map[string]dependency),
		breakers: make(map[string]Breaker),
		version:  config.Version,
		start:    time.Now(),
		timeout:  config.Timeout,
		cacheTTL: config.CacheTTL,
	}
}

// AddDependency registers a probe. A failing critical dependency makes
// the service unhealthy, any other failure only degrades it.
func (d *DeepChecker) AddDependency(name string, critical bool, check CheckFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deps[name] = dependency{check: check, critical: critical}
}

// AddCircuitBreaker adds a circuit breaker to monitor
func (d *DeepChecker) AddCircuitBreaker(name string, breaker Breaker) {
	if breaker == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakers[name] = breaker
}

// Check performs a deep health check on all dependencies
func (d *DeepChecker) Check(ctx context.Context) *DeepHealthStatus {
	d.mu.RLock()
	if d.lastResult != nil && time.Since(d.lastChecked) < d.cacheTTL {
		result := d.lastResult
		d.mu.RUnlock()
		return result
	}
	deps := make(map[string]dependency, len(d.deps))
	for name, dep := range d.deps {
		deps[name] = dep
	}
	breakers := make(map[string]Breaker, len(d.breakers))
	for name, b := range d.breakers {
		breakers[name] = b
	}
	d.mu.RUnlock()

	status := &DeepHealthStatus{
		Status:       StatusHealthy,
		Version:      d.version,
		Uptime:       time.Since(d.start),
		Dependencies: make(map[string]DependencyStatus, len(deps)),
		Breakers:     make(map[string]BreakerStatus, len(breakers)),
		CheckedAt:    time.Now(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, dep := range deps {
		wg.Add(1)
		go func(name string, dep dependency) {
			defer wg.Done()
			depStatus := d.probe(ctx, name, dep)
			mu.Lock()
			status.Dependencies[name] = depStatus
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()

	for _, dep := range status.Dependencies {
		if dep.Status != StatusUnhealthy {
			continue
		}
		if dep.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	for name, breaker := range breakers {
		state := breaker.State()
		allows := state != "open"
		if !allows && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
		status.Breakers[name] = BreakerStatus{
			Name:   name,
			State:  state,
			Allows: allows,
		}
	}

	d.mu.Lock()
	d.lastResult = status
	d.lastChecked = time.Now()
	d.mu.Unlock()

	return status
}

func (d *DeepChecker) probe(ctx context.Context, name string, dep dependency) DependencyStatus {
	start := time.Now()
	status := DependencyStatus{
		Name:      name,
		Status:    StatusHealthy,
		Critical:  dep.critical,
		CheckedAt: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := dep.check(checkCtx); err != nil {
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("check failed: %v", err)
	}
	status.Latency = time.Since(start)
	return status
}

// GinHandler serves the deep health report. Only an unhealthy service
// answers 503.
func (d *DeepChecker) GinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := d.Check(c.Request.Context())

		httpStatus := http.StatusOK
		if status.Status == StatusUnhealthy {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, status)
	}
}

// IsReady returns true if no critical dependency is failing
func (d *DeepChecker) IsReady(ctx context.Context) bool {
	return d.Check(ctx).Status != StatusUnhealthy
}
