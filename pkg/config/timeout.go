package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultRequestTimeout is the default end-to-end HTTP request budget in seconds.
	DefaultRequestTimeout = 30
	// MaxRequestTimeout caps DEFAULT_REQUEST_TIMEOUT and route overrides.
	MaxRequestTimeout = 120
)

// TimeoutConfig holds per-request timeout settings
type TimeoutConfig struct {
	DefaultRequestTimeout int
	// RouteOverrides maps "METHOD:/path" to a timeout in seconds.
	RouteOverrides map[string]int
}

func (c *TimeoutConfig) load() error {
	if c.DefaultRequestTimeout <= 0 {
		c.DefaultRequestTimeout = DefaultRequestTimeout
	}
	if c.DefaultRequestTimeout > MaxRequestTimeout {
		return fmt.Errorf("DEFAULT_REQUEST_TIMEOUT (%d) exceeds maximum of %d seconds", c.DefaultRequestTimeout, MaxRequestTimeout)
	}

	c.RouteOverrides = make(map[string]int)
	raw := getEnv("ROUTE_TIMEOUT_OVERRIDES", "")
	if raw == "" {
		return nil
	}

	var overrides map[string]int
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return fmt.Errorf("invalid ROUTE_TIMEOUT_OVERRIDES value: %w", err)
	}

	for route, seconds := range overrides {
		if seconds <= 0 {
			continue
		}
		if seconds > MaxRequestTimeout {
			return fmt.Errorf("route timeout for %s (%d) exceeds maximum of %d seconds", route, seconds, MaxRequestTimeout)
		}
		c.RouteOverrides[route] = seconds
	}

	return nil
}

// DefaultRequestTimeoutDuration returns the default request timeout.
func (c TimeoutConfig) DefaultRequestTimeoutDuration() time.Duration {
	if c.DefaultRequestTimeout <= 0 {
		return time.Duration(DefaultRequestTimeout) * time.Second
	}
	return time.Duration(c.DefaultRequestTimeout) * time.Second
}

// TimeoutForRoute returns the override for method+path or the default.
func (c TimeoutConfig) TimeoutForRoute(method, path string) time.Duration {
	if c.RouteOverrides != nil {
		key := strings.ToUpper(method) + ":" + path
		if seconds, ok := c.RouteOverrides[key]; ok && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return c.DefaultRequestTimeoutDuration()
}
