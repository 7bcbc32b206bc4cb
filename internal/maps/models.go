package maps

import (
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
)

// TravelProfile selects the routing engine profile.
type TravelProfile string

const (
	ProfileDriving TravelProfile = "driving-car"
	ProfileWalking TravelProfile = "foot-walking"
)

// Profiles lists the supported travel profiles in evaluation order.
var Profiles = []TravelProfile{ProfileDriving, ProfileWalking}

// Valid reports whether the profile is supported.
func (p TravelProfile) Valid() bool {
	return p == ProfileDriving || p == ProfileWalking
}

// Mode returns the short name used in responses and log fields.
func (p TravelProfile) Mode() string {
	switch p {
	case ProfileDriving:
		return "driving"
	case ProfileWalking:
		return "walking"
	default:
		return string(p)
	}
}

// Route is a single routed path between two coordinates.
type Route struct {
	Profile         TravelProfile        `json:"profile"`
	Geometry        []geoutil.Coordinate `json:"geometry"`
	EncodedPolyline string               `json:"encoded_polyline"`
	DistanceMeters  float64              `json:"distance_meters"`
	DurationSeconds float64              `json:"duration_seconds"`
}

// DistanceKm returns the routed distance in kilometres.
func (r *Route) DistanceKm() float64 {
	return r.DistanceMeters / 1000
}

// DurationMinutes returns the routed duration in minutes.
func (r *Route) DurationMinutes() float64 {
	return r.DurationSeconds / 60
}
