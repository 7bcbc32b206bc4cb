package routing

import (
	"fmt"
	"math"

	"github.com/JesusSantiago31/API-GPS/pkg/config"
)

// EvaluationPolicy decides when the walking profile is requested and
// whether a driving constraint breach ends the request.
type EvaluationPolicy string

const (
	// PolicyDualProfile requests driving and walking concurrently. A
	// driving breach only discards driving.
	PolicyDualProfile EvaluationPolicy = config.RoutePolicyDualProfile
	// PolicyDrivingFirst requests walking only when driving is unavailable.
	// A driving breach is terminal.
	PolicyDrivingFirst EvaluationPolicy = config.RoutePolicyDrivingFirst
)

// ParseEvaluationPolicy validates a policy name; empty selects dual profile.
func ParseEvaluationPolicy(s string) (EvaluationPolicy, error) {
	switch EvaluationPolicy(s) {
	case "":
		return PolicyDualProfile, nil
	case PolicyDualProfile, PolicyDrivingFirst:
		return EvaluationPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown route policy %q", s)
	}
}

// Settings configures a Planner.
type Settings struct {
	Fuel   *FuelTable
	Policy EvaluationPolicy

	// MaxDistanceMeters gates the great-circle pre-check when the request
	// has no explicit limit.
	MaxDistanceMeters float64
	MaxSpeedKmh       float64
}

// DefaultSettings returns the built-in planner settings.
func DefaultSettings() Settings {
	return Settings{
		Fuel:              DefaultFuelTable(),
		Policy:            PolicyDualProfile,
		MaxDistanceMeters: config.DefaultMaxDistanceMeters,
		MaxSpeedKmh:       config.DefaultMaxSpeedKmh,
	}
}

// SettingsFromConfig builds planner settings from service configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	fuel, err := NewFuelTable(cfg.Fuel)
	if err != nil {
		return Settings{}, err
	}
	policy, err := ParseEvaluationPolicy(cfg.Planner.Policy)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Fuel:              fuel,
		Policy:            policy,
		MaxDistanceMeters: cfg.Planner.MaxDistanceMeters,
		MaxSpeedKmh:       cfg.Planner.MaxSpeedKmh,
	}
	return settings.withDefaults(), nil
}

func (s Settings) withDefaults() Settings {
	if s.Fuel == nil {
		s.Fuel = DefaultFuelTable()
	}
	if s.Policy == "" {
		s.Policy = PolicyDualProfile
	}
	if s.MaxDistanceMeters <= 0 || math.IsNaN(s.MaxDistanceMeters) {
		s.MaxDistanceMeters = config.DefaultMaxDistanceMeters
	}
	if s.MaxSpeedKmh <= 0 || math.IsNaN(s.MaxSpeedKmh) {
		s.MaxSpeedKmh = config.DefaultMaxSpeedKmh
	}
	return s
}
