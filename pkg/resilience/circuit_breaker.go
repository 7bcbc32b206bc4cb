package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the breaker refuses a request because it is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Operation represents an upstream call wrapped by the circuit breaker.
type Operation func(ctx context.Context) (interface{}, error)

// Settings defines runtime options for the circuit breaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
	// IsSuccessful classifies errors that should not count against the breaker,
	// such as an upstream answering "no route" for a valid request.
	IsSuccessful func(err error) bool
}

// BuildSettings converts plain configuration values into breaker settings.
func BuildSettings(name string, intervalSeconds, timeoutSeconds int, failureThreshold, successThreshold int) Settings {
	settings := Settings{
		Name:     name,
		Interval: time.Duration(intervalSeconds) * time.Second,
		Timeout:  time.Duration(timeoutSeconds) * time.Second,
	}
	if failureThreshold > 0 {
		settings.FailureThreshold = uint32(failureThreshold)
	}
	if successThreshold > 0 {
		settings.SuccessThreshold = uint32(successThreshold)
	}
	return settings
}

// CircuitBreaker guards one upstream dependency. A nil breaker runs
// operations directly.
type CircuitBreaker struct {
	name         string
	breaker      *gobreaker.CircuitBreaker
	isSuccessful func(error) bool
}

// NewCircuitBreaker constructs a breaker that trips after FailureThreshold
// consecutive failures (default 5).
func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	name := nextBreakerName(settings.Name)

	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breakerSettings := gobreaker.Settings{
		Name:     name,
		Timeout:  settings.Timeout,
		Interval: settings.Interval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordStateChange(name, from, to)
			logger.Get().Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	cb := &CircuitBreaker{name: name, isSuccessful: settings.IsSuccessful}
	if cb.isSuccessful != nil {
		breakerSettings.IsSuccessful = func(err error) bool {
			return err == nil || cb.isSuccessful(err)
		}
	}
	if settings.SuccessThreshold > 0 {
		breakerSettings.MaxRequests = settings.SuccessThreshold
	}

	cb.breaker = gobreaker.NewCircuitBreaker(breakerSettings)
	recordState(name, gobreaker.StateClosed)
	return cb
}

// Name returns the breaker name used in logs and metrics.
func (c *CircuitBreaker) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Execute runs the supplied operation through the breaker. ErrCircuitOpen
// is returned without calling operation while the breaker is open or the
// half-open probe budget is spent.
func (c *CircuitBreaker) Execute(ctx context.Context, operation Operation) (interface{}, error) {
	if operation == nil {
		return nil, errors.New("operation cannot be nil")
	}

	if c == nil || c.breaker == nil {
		return operation(ctx)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return operation(ctx)
	})
	switch {
	case err == nil:
		recordCall(c.name, callSuccess)
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		recordCall(c.name, callRejected)
		return nil, ErrCircuitOpen
	case c.isSuccessful != nil && c.isSuccessful(err):
		recordCall(c.name, callExpected)
		return nil, err
	default:
		recordCall(c.name, callFailure)
		return nil, err
	}
}

// Allow reports whether the breaker would allow a request without executing it.
func (c *CircuitBreaker) Allow() bool {
	if c == nil || c.breaker == nil {
		return true
	}
	return c.breaker.State() != gobreaker.StateOpen
}

// State returns the current breaker state as a string.
func (c *CircuitBreaker) State() string {
	if c == nil || c.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return c.breaker.State().String()
}
