package maps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "route_provider_request_duration_seconds",
	Help:    "Latency of directions provider calls",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
}, []string{"operation", "profile", "outcome"})

func observeProviderCall(operation string, profile TravelProfile, err error, elapsed time.Duration) {
	providerRequestDuration.WithLabelValues(operation, string(profile), providerOutcome(err)).Observe(elapsed.Seconds())
}

func providerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNoRoute(err):
		return "no_route"
	case IsDistanceTooLarge(err):
		return "distance_too_large"
	default:
		return "error"
	}
}
