package routing

import (
	"strings"

	"github.com/JesusSantiago31/API-GPS/internal/maps"
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
)

// VehicleClass selects the fuel consumption rate.
type VehicleClass string

const (
	VehicleCar        VehicleClass = "car"
	VehicleMotorcycle VehicleClass = "motorcycle"
)

// DefaultVehicleClass is used when a request does not name one.
const DefaultVehicleClass = VehicleCar

// ParseVehicleClass normalises user input. "moto" is accepted as a
// shorthand for motorcycle.
func ParseVehicleClass(s string) VehicleClass {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return DefaultVehicleClass
	case "moto":
		return VehicleMotorcycle
	default:
		return VehicleClass(v)
	}
}

// FuelGrade selects the fuel price per liter.
type FuelGrade string

const (
	FuelRegular FuelGrade = "regular"
	FuelPremium FuelGrade = "premium"
	FuelDiesel  FuelGrade = "diesel"
)

// DefaultFuelGrade is used when a request does not name one.
const DefaultFuelGrade = FuelRegular

// ParseFuelGrade normalises user input.
func ParseFuelGrade(s string) FuelGrade {
	g := strings.ToLower(strings.TrimSpace(s))
	if g == "" {
		return DefaultFuelGrade
	}
	return FuelGrade(g)
}

// Endpoint is one end of a route, given as a coordinate or as an address.
// A coordinate takes precedence; the address is then only used as a label.
type Endpoint struct {
	Coordinate *geoutil.Coordinate
	Address    string
}

// IsZero reports whether neither a coordinate nor an address was given.
func (e Endpoint) IsZero() bool {
	return e.Coordinate == nil && strings.TrimSpace(e.Address) == ""
}

// RouteRequest is the input of PlanRoute. Nil constraints mean no limit.
type RouteRequest struct {
	Start Endpoint
	End   Endpoint

	MaxDistanceMeters  *float64
	MaxDurationMinutes *float64
	MaxCost            *float64

	FuelGrade    FuelGrade
	VehicleClass VehicleClass

	// SpeedKmh switches driving duration to distance / speed.
	SpeedKmh *float64
}

// ProfileRoute is a provider route with the values derived from it.
type ProfileRoute struct {
	Profile         maps.TravelProfile   `json:"profile"`
	Geometry        []geoutil.Coordinate `json:"geometry"`
	EncodedPolyline string               `json:"encoded_polyline"`
	DistanceMeters  float64              `json:"distance_meters"`
	DurationSeconds float64              `json:"duration_seconds"`
	FuelUsedLiters  float64              `json:"fuel_used_liters"`
	FuelCost        float64              `json:"fuel_cost"`
}

// DurationMinutes returns the route duration in minutes.
func (r *ProfileRoute) DurationMinutes() float64 {
	return r.DurationSeconds / 60
}

// RouteResult is a fully evaluated itinerary. It is only built after every
// active constraint has been checked.
type RouteResult struct {
	Profile         maps.TravelProfile
	Geometry        []geoutil.Coordinate
	EncodedPolyline string
	DistanceMeters  float64
	DurationSeconds float64
	FuelUsedLiters  float64
	FuelCost        float64
	Currency        string

	Driving *ProfileRoute
	Walking *ProfileRoute
	// Unavailable explains, per travel mode, why a profile is missing.
	Unavailable map[string]string

	FuelGrade    FuelGrade
	VehicleClass VehicleClass
	SpeedKmh     *float64

	Start        geoutil.Coordinate
	End          geoutil.Coordinate
	StartAddress string
	EndAddress   string

	GreatCircleMeters float64
}

// HasDriving reports whether a driving itinerary is present.
func (r *RouteResult) HasDriving() bool {
	return r.Driving != nil
}

// HasWalking reports whether a walking itinerary is present.
func (r *RouteResult) HasWalking() bool {
	return r.Walking != nil
}
