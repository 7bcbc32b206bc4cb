package routing

import (
	"fmt"
	"sort"

	"github.com/JesusSantiago31/API-GPS/pkg/config"
)

// FuelPolicy selects how consumption is derived from the vehicle class.
type FuelPolicy string

const (
	// FuelPolicyPerVehicle uses a liters/km rate per vehicle class.
	FuelPolicyPerVehicle FuelPolicy = config.FuelPolicyPerVehicle
	// FuelPolicyFlat uses one rate for every vehicle class.
	FuelPolicyFlat FuelPolicy = config.FuelPolicyFlat
)

// FuelTable holds deployment-time fuel prices and consumption rates.
// It is read-only after construction and safe for concurrent use.
type FuelTable struct {
	prices      map[FuelGrade]float64
	consumption map[VehicleClass]float64
	policy      FuelPolicy
	flatRate    float64
	currency    string
}

// NewFuelTable builds a FuelTable from configuration.
func NewFuelTable(cfg config.FuelConfig) (*FuelTable, error) {
	if len(cfg.Prices) == 0 {
		return nil, fmt.Errorf("fuel price table is empty")
	}
	if len(cfg.Consumption) == 0 {
		return nil, fmt.Errorf("fuel consumption table is empty")
	}

	policy := FuelPolicy(cfg.Policy)
	if policy == "" {
		policy = FuelPolicyPerVehicle
	}
	if policy != FuelPolicyPerVehicle && policy != FuelPolicyFlat {
		return nil, fmt.Errorf("unknown fuel policy %q", cfg.Policy)
	}
	if policy == FuelPolicyFlat && cfg.FlatRate <= 0 {
		return nil, fmt.Errorf("flat fuel rate must be positive, got %v", cfg.FlatRate)
	}

	t := &FuelTable{
		prices:      make(map[FuelGrade]float64, len(cfg.Prices)),
		consumption: make(map[VehicleClass]float64, len(cfg.Consumption)),
		policy:      policy,
		flatRate:    cfg.FlatRate,
		currency:    cfg.Currency,
	}
	for grade, price := range cfg.Prices {
		if price <= 0 {
			return nil, fmt.Errorf("fuel price for %q must be positive", grade)
		}
		t.prices[ParseFuelGrade(grade)] = price
	}
	for vehicle, rate := range cfg.Consumption {
		if rate <= 0 {
			return nil, fmt.Errorf("fuel consumption for %q must be positive", vehicle)
		}
		t.consumption[ParseVehicleClass(vehicle)] = rate
	}
	return t, nil
}

// DefaultFuelTable returns the built-in per-vehicle table.
func DefaultFuelTable() *FuelTable {
	t, _ := NewFuelTable(config.FuelConfig{
		Prices:      config.DefaultFuelPrices(),
		Consumption: config.DefaultFuelConsumption(),
		Currency:    "MXN",
		Policy:      config.FuelPolicyPerVehicle,
		FlatRate:    config.DefaultFlatFuelRate,
	})
	return t
}

// Consumption returns the liters/km rate for a vehicle class. Under the
// flat policy the class must still be known.
func (t *FuelTable) Consumption(vehicle VehicleClass) (float64, bool) {
	rate, ok := t.consumption[vehicle]
	if !ok {
		return 0, false
	}
	if t.policy == FuelPolicyFlat {
		return t.flatRate, true
	}
	return rate, true
}

// Price returns the price per liter for a fuel grade.
func (t *FuelTable) Price(grade FuelGrade) (float64, bool) {
	price, ok := t.prices[grade]
	return price, ok
}

// Currency returns the currency prices are expressed in.
func (t *FuelTable) Currency() string {
	return t.currency
}

// Policy returns the active consumption policy.
func (t *FuelTable) Policy() FuelPolicy {
	return t.policy
}

// Grades lists the known fuel grades in sorted order.
func (t *FuelTable) Grades() []string {
	out := make([]string, 0, len(t.prices))
	for g := range t.prices {
		out = append(out, string(g))
	}
	sort.Strings(out)
	return out
}

// VehicleClasses lists the known vehicle classes in sorted order.
func (t *FuelTable) VehicleClasses() []string {
	out := make([]string, 0, len(t.consumption))
	for v := range t.consumption {
		out = append(out, string(v))
	}
	sort.Strings(out)
	return out
}

// FuelUsed returns liters burned over distanceMeters at rate liters/km.
func FuelUsed(distanceMeters, rate float64) float64 {
	return distanceMeters / 1000 * rate
}

// FuelCost returns the cost of liters at pricePerLiter.
func FuelCost(liters, pricePerLiter float64) float64 {
	return liters * pricePerLiter
}
