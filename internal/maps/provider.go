package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
)

// RouteProvider computes a route between two coordinates for one profile.
type RouteProvider interface {
	GetRoute(ctx context.Context, start, end geoutil.Coordinate, profile TravelProfile) (*Route, error)
}

// ProviderConfig holds configuration for a directions provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// Breaker tuning, zero values use resilience defaults
	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeoutSeconds   int
	BreakerIntervalSeconds  int
}

// Provider error codes returned by the directions API.
const (
	CodeDistanceTooLarge = 2004
	CodeNoRoute          = 2009
)

// ProviderError is a typed failure from the directions provider.
type ProviderError struct {
	Code       int
	Message    string
	Profile    TravelProfile
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NoRoute reports whether the provider found no path for the profile.
func (e *ProviderError) NoRoute() bool {
	return e.Code == CodeNoRoute
}

// DistanceTooLarge reports whether the profile's distance limit was exceeded.
func (e *ProviderError) DistanceTooLarge() bool {
	return e.Code == CodeDistanceTooLarge
}

// NewProviderError builds a ProviderError, translating known codes into
// profile-specific messages and keeping the raw message otherwise.
func NewProviderError(profile TravelProfile, statusCode, code int, raw string, err error) *ProviderError {
	message := raw
	switch code {
	case CodeNoRoute:
		message = fmt.Sprintf("no %s route could be found between the selected points", profile.Mode())
	case CodeDistanceTooLarge:
		message = fmt.Sprintf("the distance is too large for a %s route", profile.Mode())
	default:
		if message == "" {
			message = fmt.Sprintf("%s route request failed", profile.Mode())
		}
	}
	return &ProviderError{
		Code:       code,
		Message:    message,
		Profile:    profile,
		StatusCode: statusCode,
		Err:        err,
	}
}

// IsNoRoute reports whether err is a provider "no route" failure.
func IsNoRoute(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.NoRoute()
}

// IsDistanceTooLarge reports whether err is a provider "distance too large" failure.
func IsDistanceTooLarge(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.DistanceTooLarge()
}

// isExpectedOutcome marks answers that describe the request, not provider health.
func isExpectedOutcome(err error) bool {
	return IsNoRoute(err) || IsDistanceTooLarge(err)
}
