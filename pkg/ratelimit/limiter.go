package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/config"
	redis "github.com/redis/go-redis/v9"
)

// Rule defines a rate limiting policy for a single endpoint. Cost is the
// number of tokens one request takes; a route plan fans out to several
// provider calls and is charged accordingly.
type Rule struct {
	Limit  int
	Burst  int
	Window time.Duration
	Cost   int
}

// DefaultEndpointCosts charges each endpoint by the provider calls it can make.
var DefaultEndpointCosts = map[string]int{
	"POST:/calculate_route": 2,
	"POST:/geocode":         1,
}

// Result captures the outcome of a rate limiting decision.
type Result struct {
	Allowed     bool
	Remaining   int
	RetryAfter  time.Duration
	Limit       int
	Window      time.Duration
	ResetAfter  time.Duration
	IdentityKey string
	EndpointKey string
}

// Limiter implements a Redis-backed token bucket keyed by endpoint and
// client address. It protects the routing provider's request quota.
type Limiter struct {
	client redis.Cmdable
	cfg    config.RateLimitConfig
	script *redis.Script
	now    func() time.Time
}

const tokenBucketScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local cost = tonumber(ARGV[5])

local data = redis.call("HMGET", key, "tokens", "timestamp")
local tokens = tonumber(data[1])
local timestamp = tonumber(data[2])

if tokens == nil then
    tokens = capacity
    timestamp = now
else
    if timestamp == nil then
        timestamp = now
    end
    local delta = now - timestamp
    if delta > 0 then
        tokens = math.min(capacity, tokens + (delta * refillRate))
        timestamp = now
    end
end

local allowed = 0
if tokens >= cost then
    allowed = 1
    tokens = tokens - cost
end

redis.call("HMSET", key, "tokens", tokens, "timestamp", now)
redis.call("PEXPIRE", key, ttl)

local retryAfter = 0
if allowed == 0 then
    retryAfter = math.ceil((cost - tokens) / refillRate)
end

return {allowed, tokens, retryAfter}
`

// NewLimiter creates a new Limiter instance.
func NewLimiter(client redis.Cmdable, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(tokenBucketScript),
		now:    time.Now,
	}
}

// RuleFor determines the effective rule for the provided endpoint.
func (l *Limiter) RuleFor(endpoint string) Rule {
	window := l.cfg.Window()
	limit := l.cfg.DefaultLimit
	burst := l.cfg.DefaultBurst
	cost := DefaultEndpointCosts[endpoint]

	if override, ok := l.cfg.EndpointOverrides[endpoint]; ok {
		if override.WindowSeconds > 0 {
			window = time.Duration(override.WindowSeconds) * time.Second
		}
		if override.Limit > 0 {
			limit = override.Limit
		}
		if override.Burst >= 0 {
			burst = override.Burst
		}
		if override.Cost > 0 {
			cost = override.Cost
		}
	}

	if cost <= 0 {
		cost = 1
	}

	if limit <= 0 {
		return Rule{Limit: 0, Burst: burst, Window: window, Cost: cost}
	}

	if burst < 0 {
		burst = 0
	}

	return Rule{Limit: limit, Burst: burst, Window: window, Cost: cost}
}

// Allow determines whether the request should be allowed for the provided key.
func (l *Limiter) Allow(ctx context.Context, endpointKey, identityKey string, rule Rule) (Result, error) {
	if !l.cfg.Enabled || rule.Limit <= 0 {
		return Result{
			Allowed:     true,
			Remaining:   rule.Limit,
			Limit:       rule.Limit,
			Window:      rule.Window,
			IdentityKey: identityKey,
			EndpointKey: endpointKey,
		}, nil
	}

	if rule.Window <= 0 {
		rule.Window = l.cfg.Window()
	}
	if rule.Cost <= 0 {
		rule.Cost = 1
	}

	key := fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpointKey, identityKey)

	now := l.now().UnixMilli()
	windowMillis := rule.Window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = int64(time.Minute / time.Millisecond)
	}

	refillRate := float64(rule.Limit) / float64(windowMillis)
	if refillRate <= 0 {
		refillRate = 1.0 / float64(windowMillis)
	}

	capacity := float64(rule.Limit + rule.Burst)
	if capacity < float64(rule.Cost) {
		capacity = float64(rule.Cost)
	}

	ttl := windowMillis * 2
	if ttl <= 0 {
		ttl = windowMillis
	}

	cmd := l.script.Run(ctx, l.client, []string{key}, now, formatFloat(refillRate), formatFloat(capacity), ttl, rule.Cost)
	raw, err := cmd.Result()
	if err != nil {
		return Result{}, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return Result{}, errors.New("unexpected script response")
	}

	allowed := toInt(values[0])
	remainingTokens := toFloat(values[1])
	retryAfterMillis := toInt(values[2])

	// Remaining counts whole requests of this cost, not raw tokens
	result := Result{
		Allowed:     allowed == 1,
		Remaining:   int(math.Max(0, math.Floor(remainingTokens/float64(rule.Cost)))),
		RetryAfter:  time.Duration(retryAfterMillis) * time.Millisecond,
		Limit:       rule.Limit,
		Window:      rule.Window,
		ResetAfter:  time.Duration(retryAfterMillis) * time.Millisecond,
		IdentityKey: identityKey,
		EndpointKey: endpointKey,
	}

	if result.Allowed {
		missing := capacity - remainingTokens
		if missing < 0 {
			missing = 0
		}
		resetMillis := missing / refillRate
		if resetMillis < 0 {
			resetMillis = 0
		}
		result.ResetAfter = time.Duration(int(math.Ceil(resetMillis))) * time.Millisecond
		result.RetryAfter = 0
	}

	return result, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 10, 64)
}

func toInt(value interface{}) int {
	switch v := value.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case string:
		i, _ := strconv.Atoi(v)
		return i
	case float64:
		return int(v)
	default:
		return 0
	}
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// WithNow overrides the time source.
func (l *Limiter) WithNow(now func() time.Time) {
	l.now = now
}
