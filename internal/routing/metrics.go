package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routePlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_plans_total",
		Help: "Route planning requests by outcome and served travel mode",
	}, []string{"outcome", "mode"})

	routeFuelCost = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "route_fuel_cost",
		Help:    "Fuel cost of successful driving itineraries",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"currency", "fuel_type"})
)

func recordPlanOutcome(outcome, mode string) {
	routePlansTotal.WithLabelValues(outcome, mode).Inc()
}

func recordFuelCost(result *RouteResult) {
	if result.Driving == nil {
		return
	}
	routeFuelCost.WithLabelValues(result.Currency, string(result.FuelGrade)).Observe(result.Driving.FuelCost)
}
