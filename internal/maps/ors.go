package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/JesusSantiago31/API-GPS/pkg/httpclient"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/resilience"
	"github.com/JesusSantiago31/API-GPS/pkg/tracing"
	polyline "github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

const (
	orsDirectionsURL   = "https://api.openrouteservice.org/v2/directions"
	orsDefaultTimeout  = 10 * time.Second
	orsTracerName      = "maps.openrouteservice"
	orsServiceName     = "openrouteservice"
	orsOperationRoute  = "directions"
	orsInstructionsOff = "false"
)

// ORSProvider implements RouteProvider for the OpenRouteService directions API.
type ORSProvider struct {
	apiKey   string
	client   *httpclient.Client
	breakers map[TravelProfile]*resilience.CircuitBreaker
}

// ORSOption customises an ORSProvider.
type ORSOption func(*orsOptions)

type orsOptions struct {
	httpClient *http.Client
	breakers   map[TravelProfile]*resilience.CircuitBreaker
}

// WithHTTPClient sets the http.Client used for directions calls.
func WithHTTPClient(hc *http.Client) ORSOption {
	return func(o *orsOptions) {
		o.httpClient = hc
	}
}

// WithBreaker installs a circuit breaker for a single profile.
func WithBreaker(profile TravelProfile, cb *resilience.CircuitBreaker) ORSOption {
	return func(o *orsOptions) {
		o.breakers[profile] = cb
	}
}

// NewORSProvider creates a new OpenRouteService directions provider.
// Each profile gets its own breaker so an unhealthy walking engine
// does not block driving requests.
func NewORSProvider(cfg ProviderConfig, opts ...ORSOption) *ORSProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = orsDirectionsURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = orsDefaultTimeout
	}

	options := &orsOptions{breakers: make(map[TravelProfile]*resilience.CircuitBreaker)}
	for _, opt := range opts {
		opt(options)
	}

	if cfg.BreakerEnabled {
		for _, profile := range Profiles {
			if _, ok := options.breakers[profile]; ok {
				continue
			}
			settings := resilience.BuildSettings(
				fmt.Sprintf("ors-%s", profile),
				cfg.BreakerIntervalSeconds,
				cfg.BreakerTimeoutSeconds,
				cfg.BreakerFailureThreshold,
				cfg.BreakerSuccessThreshold,
			)
			settings.IsSuccessful = isExpectedOutcome
			options.breakers[profile] = resilience.NewCircuitBreaker(settings)
		}
	}

	var clientOpts []httpclient.Option
	if options.httpClient != nil {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(options.httpClient))
	}

	return &ORSProvider{
		apiKey:   cfg.APIKey,
		client:   httpclient.NewClient(baseURL, timeout, clientOpts...),
		breakers: options.breakers,
	}
}

// Breakers returns the circuit breaker of each profile, keyed by breaker name.
func (p *ORSProvider) Breakers() map[string]*resilience.CircuitBreaker {
	out := make(map[string]*resilience.CircuitBreaker, len(p.breakers))
	for profile, cb := range p.breakers {
		if cb != nil {
			out["ors-"+string(profile)] = cb
		}
	}
	return out
}

type orsDirectionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions string      `json:"instructions"`
}

type orsDirectionsResponse struct {
	Routes []struct {
		Geometry string `json:"geometry"`
		Summary  struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

// GetRoute requests a single route for the given profile. Failures are
// always returned as *ProviderError.
func (p *ORSProvider) GetRoute(ctx context.Context, start, end geoutil.Coordinate, profile TravelProfile) (*Route, error) {
	if !profile.Valid() {
		return nil, NewProviderError(profile, 0, 0, fmt.Sprintf("unsupported travel profile %q", profile), nil)
	}

	var route *Route
	began := time.Now()
	err := tracing.TraceExternalAPI(ctx, orsTracerName, orsServiceName, orsOperationRoute, func(ctx context.Context) error {
		tracing.AddSpanAttributes(ctx, tracing.EndpointAttributes(start.Longitude, start.Latitude, end.Longitude, end.Latitude)...)

		result, err := p.breakers[profile].Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return p.fetchRoute(ctx, start, end, profile)
		})
		if err != nil {
			return p.translateError(profile, err)
		}

		route = result.(*Route)
		tracing.AddSpanAttributes(ctx, tracing.RouteAttributes(string(profile), route.DistanceMeters, route.DurationSeconds)...)
		return nil
	})
	observeProviderCall(orsOperationRoute, profile, err, time.Since(began))

	if err != nil {
		logger.WarnContext(ctx, "route provider call failed",
			zap.String("profile", string(profile)),
			zap.Error(err),
		)
		return nil, err
	}

	logger.DebugContext(ctx, "route provider call succeeded",
		zap.String("profile", string(profile)),
		zap.Float64("distance_meters", route.DistanceMeters),
		zap.Float64("duration_seconds", route.DurationSeconds),
	)
	return route, nil
}

func (p *ORSProvider) fetchRoute(ctx context.Context, start, end geoutil.Coordinate, profile TravelProfile) (*Route, error) {
	body := orsDirectionsRequest{
		Coordinates:  [][]float64{start.Pair(), end.Pair()},
		Instructions: orsInstructionsOff,
	}

	resp, err := p.client.Post(ctx, "/"+string(profile), body, map[string]string{
		"Authorization": p.apiKey,
	})
	if err != nil {
		return nil, p.translateError(profile, err)
	}

	var parsed orsDirectionsResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, NewProviderError(profile, http.StatusOK, 0, "failed to parse directions response", err)
	}
	if len(parsed.Routes) == 0 {
		return nil, NewProviderError(profile, http.StatusOK, CodeNoRoute, "", nil)
	}

	first := parsed.Routes[0]
	geometry, err := decodeGeometry(first.Geometry)
	if err != nil {
		return nil, NewProviderError(profile, http.StatusOK, 0, "failed to decode route geometry", err)
	}

	return &Route{
		Profile:         profile,
		Geometry:        geometry,
		EncodedPolyline: first.Geometry,
		DistanceMeters:  first.Summary.Distance,
		DurationSeconds: first.Summary.Duration,
	}, nil
}

// translateError converts transport, HTTP and breaker failures into a ProviderError.
func (p *ORSProvider) translateError(profile TravelProfile, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return NewProviderError(profile, http.StatusServiceUnavailable, 0,
			fmt.Sprintf("%s routing is temporarily unavailable", profile.Mode()), err)
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		code, message := parseORSError([]byte(httpErr.Body))
		if message == "" {
			message = fmt.Sprintf("directions provider returned HTTP %d", httpErr.StatusCode)
		}
		return NewProviderError(profile, httpErr.StatusCode, code, message, err)
	}

	return NewProviderError(profile, 0, 0, fmt.Sprintf("%s route request failed: %v", profile.Mode(), err), err)
}

// parseORSError reads both the structured {"error":{"code","message"}} body
// and the gateway's plain {"error":"..."} form.
func parseORSError(body []byte) (int, string) {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return 0, ""
	}

	var detailed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detailed); err == nil {
		return detailed.Code, detailed.Message
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		return 0, plain
	}
	return 0, ""
}

// decodeGeometry turns an encoded polyline (precision 5) into coordinates.
func decodeGeometry(encoded string) ([]geoutil.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("trailing polyline data: %d bytes", len(rest))
	}

	geometry := make([]geoutil.Coordinate, 0, len(coords))
	for _, c := range coords {
		geometry = append(geometry, geoutil.Coordinate{Latitude: c[0], Longitude: c[1]})
	}
	return geometry, nil
}
