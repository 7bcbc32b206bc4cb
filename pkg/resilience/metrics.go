package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Call results recorded per breaker. "expected" marks upstream errors the
// breaker treats as answers, e.g. no route between two points.
const (
	callSuccess  = "success"
	callExpected = "expected"
	callFailure  = "failure"
	callRejected = "rejected"
)

var (
	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_breaker_state",
		Help: "Current state of upstream circuit breakers (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_breaker_calls_total",
		Help: "Upstream calls made through a circuit breaker by result",
	}, []string{"breaker", "result"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})

	breakerIDCounter uint64
)

func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	id := atomic.AddUint64(&breakerIDCounter, 1)
	return "upstream-" + strconv.FormatUint(id, 10)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func recordState(name string, state gobreaker.State) {
	breakerStateGauge.WithLabelValues(name).Set(stateValue(state))
}

func recordStateChange(name string, from, to gobreaker.State) {
	breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	recordState(name, to)
}

func recordCall(name, result string) {
	breakerCallsTotal.WithLabelValues(name, result).Inc()
}
