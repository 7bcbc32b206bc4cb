package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// Coordinate is a (longitude, latitude) pair in decimal degrees.
// The field order follows the GeoJSON convention used by routing providers.
type Coordinate struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// NewCoordinate builds a coordinate from a [lon, lat] pair.
func NewCoordinate(pair []float64) (Coordinate, error) {
	if len(pair) != 2 {
		return Coordinate{}, fmt.Errorf("coordinate must have exactly 2 values, got %d", len(pair))
	}
	c := Coordinate{Longitude: pair[0], Latitude: pair[1]}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks the coordinate is within WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90.0 || c.Latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180.0 || c.Longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", c.Longitude)
	}
	return nil
}

// Pair returns the coordinate as [lon, lat] for external API compatibility.
func (c Coordinate) Pair() []float64 {
	return []float64{c.Longitude, c.Latitude}
}

// Distance calculates the great-circle distance in metres between two
// coordinates using the Haversine formula. The result is not rounded.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push h just past 1 for near-antipodal points.
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// DistanceKm is Distance expressed in kilometres.
func DistanceKm(a, b Coordinate) float64 {
	return Distance(a, b) / 1000.0
}
