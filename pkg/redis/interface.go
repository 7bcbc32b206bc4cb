package redis

import (
	goredis "github.com/redis/go-redis/v9"
)

// ClientInterface is the subset of Redis the service depends on: the
// rate limiter runs scripts through Cmdable and readiness pings it.
type ClientInterface interface {
	goredis.Cmdable
	HealthCheck() func() error
	Close() error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)
