package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAndReturnsOpenError(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "ors-trip",
		Timeout:          50 * time.Millisecond,
		Interval:         50 * time.Millisecond,
		FailureThreshold: 2,
		SuccessThreshold: 1,
	})

	ctx := context.Background()
	failingOp := func(context.Context) (interface{}, error) {
		return nil, errors.New("upstream 503")
	}

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(ctx, failingOp)
		require.Error(t, err, "iteration %d", i)
	}

	assert.False(t, breaker.Allow())
	assert.Equal(t, "open", breaker.State())

	called := false
	_, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerCallsTotal.WithLabelValues("ors-trip", callRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerCallsTotal.WithLabelValues("ors-trip", callFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerStateGauge.WithLabelValues("ors-trip")))
}

func TestCircuitBreakerRecoversAfterTimeout(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "ors-recover",
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 1,
		SuccessThreshold: 1,
	})

	ctx := context.Background()
	_, _ = breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.False(t, breaker.Allow())

	time.Sleep(40 * time.Millisecond)

	result, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		return "route", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "route", result)
	assert.Equal(t, "closed", breaker.State())
}

func TestCircuitBreakerPassesThroughOnSuccess(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "ors-success",
		Timeout:          time.Second,
		Interval:         time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
	})

	result, err := breaker.Execute(context.Background(), func(context.Context) (interface{}, error) {
		return "response", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "response", result)
	assert.Equal(t, "ors-success", breaker.Name())
}

func TestCircuitBreakerIgnoresExpectedErrors(t *testing.T) {
	errNoRoute := errors.New("no route")
	breaker := NewCircuitBreaker(Settings{
		Name:             "ors-expected",
		Timeout:          time.Second,
		Interval:         time.Second,
		FailureThreshold: 1,
		IsSuccessful: func(err error) bool {
			return errors.Is(err, errNoRoute)
		},
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
			return nil, errNoRoute
		})
		assert.ErrorIs(t, err, errNoRoute)
	}

	assert.True(t, breaker.Allow())
	assert.Equal(t, "closed", breaker.State())
	assert.Equal(t, 3.0, testutil.ToFloat64(breakerCallsTotal.WithLabelValues("ors-expected", callExpected)))
}

func TestCircuitBreakerNilOperation(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "ors-nil-op"})
	_, err := breaker.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestNilCircuitBreakerRunsOperation(t *testing.T) {
	var breaker *CircuitBreaker
	result, err := breaker.Execute(context.Background(), func(context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, breaker.Allow())
	assert.Equal(t, "closed", breaker.State())
	assert.Empty(t, breaker.Name())
}

func TestBuildSettings(t *testing.T) {
	s := BuildSettings("ors-geocode", 60, 30, 0, 2)
	assert.Equal(t, "ors-geocode", s.Name)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Zero(t, s.FailureThreshold)
	assert.Equal(t, uint32(2), s.SuccessThreshold)
}

func TestNextBreakerNameGeneratesUniqueNames(t *testing.T) {
	a := nextBreakerName("")
	b := nextBreakerName("")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "named", nextBreakerName("named"))
}
