package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/JesusSantiago31/API-GPS/pkg/httpclient"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/resilience"
	"github.com/JesusSantiago31/API-GPS/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	orsGeocodeURL      = "https://api.openrouteservice.org/geocode/search"
	geocodeTimeout     = 10 * time.Second
	geocodeTracerName  = "geo.openrouteservice"
	geocodeServiceName = "openrouteservice"
)

var (
	// ErrAddressNotFound is returned when the geocoder has no match for an address.
	ErrAddressNotFound = errors.New("address not found")

	// ErrEmptyAddress is returned for blank input; no request is made.
	ErrEmptyAddress = errors.New("address is required")
)

var geocodeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "geocoder_request_duration_seconds",
	Help:    "Latency of geocoding provider calls",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
}, []string{"outcome"})

// Geocoder resolves free text to the single best matching coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
}

// GeocodingResult represents a geocoded address result.
type GeocodingResult struct {
	Label      string             `json:"address"`
	Coordinate geoutil.Coordinate `json:"coordinate"`
	H3Cell     string             `json:"h3_cell,omitempty"`
}

// GeocoderConfig holds configuration for the OpenRouteService geocoder.
type GeocoderConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Country restricts matches, e.g. "MX".
	Country    string
	HTTPClient *http.Client
	// Breaker enables circuit breaking when set; unmatched addresses do
	// not count as failures.
	Breaker *resilience.Settings
}

// ORSGeocoder implements Geocoder against the OpenRouteService (Pelias) search API.
type ORSGeocoder struct {
	apiKey  string
	country string
	client  *httpclient.Client
	breaker *resilience.CircuitBreaker
}

// NewORSGeocoder creates a new geocoder.
func NewORSGeocoder(cfg GeocoderConfig) *ORSGeocoder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = orsGeocodeURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = geocodeTimeout
	}

	var opts []httpclient.Option
	if cfg.HTTPClient != nil {
		opts = append(opts, httpclient.WithHTTPClient(cfg.HTTPClient))
	}

	var breaker *resilience.CircuitBreaker
	if cfg.Breaker != nil {
		settings := *cfg.Breaker
		settings.IsSuccessful = func(err error) bool {
			return errors.Is(err, ErrAddressNotFound)
		}
		breaker = resilience.NewCircuitBreaker(settings)
	}

	return &ORSGeocoder{
		apiKey:  cfg.APIKey,
		country: strings.ToUpper(strings.TrimSpace(cfg.Country)),
		client:  httpclient.NewClient(baseURL, timeout, opts...),
		breaker: breaker,
	}
}

// Breaker returns the geocoder's circuit breaker, nil when disabled.
func (g *ORSGeocoder) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

type peliasResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode converts an address string to its best matching coordinate.
func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}

	var result *GeocodingResult
	began := time.Now()
	err := tracing.TraceExternalAPI(ctx, geocodeTracerName, geocodeServiceName, "geocode", func(ctx context.Context) error {
		out, err := g.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return g.search(ctx, address)
		})
		if err != nil {
			return err
		}
		result = out.(*GeocodingResult)
		return nil
	})
	geocodeRequestDuration.WithLabelValues(geocodeOutcome(err)).Observe(time.Since(began).Seconds())

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = fmt.Errorf("geocoding is temporarily unavailable: %w", err)
		}
		logger.WarnContext(ctx, "geocoding failed", zap.Int("address_length", len(address)), zap.Error(err))
		return nil, err
	}

	logger.DebugContext(ctx, "geocoding succeeded",
		zap.String("label", result.Label),
		zap.String("h3_cell", result.H3Cell),
		zap.String("h3_district", DistrictFor(result.Coordinate)),
	)
	return result, nil
}

func (g *ORSGeocoder) search(ctx context.Context, address string) (*GeocodingResult, error) {
	params := url.Values{}
	params.Set("text", address)
	params.Set("size", "1")
	if g.country != "" {
		params.Set("boundary.country", g.country)
	}

	body, err := g.client.Get(ctx, "?"+params.Encode(), map[string]string{
		"Authorization": g.apiKey,
	})
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("geocoding error: %s", geocodeErrorMessage(httpErr))
		}
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	var resp peliasResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	// An empty match list is a valid answer, not a provider failure.
	if len(resp.Features) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrAddressNotFound, address)
	}

	feature := resp.Features[0]
	coordinate, err := geoutil.NewCoordinate(feature.Geometry.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("geocoder returned invalid coordinates: %w", err)
	}

	label := feature.Properties.Label
	if label == "" {
		label = address
	}

	return &GeocodingResult{
		Label:      label,
		Coordinate: coordinate,
		H3Cell:     CellFor(coordinate),
	}, nil
}

func geocodeErrorMessage(httpErr *httpclient.HTTPError) string {
	var body struct {
		Error     json.RawMessage `json:"error"`
		Geocoding struct {
			Errors []string `json:"errors"`
		} `json:"geocoding"`
	}
	if err := json.Unmarshal([]byte(httpErr.Body), &body); err == nil {
		if len(body.Geocoding.Errors) > 0 {
			return strings.Join(body.Geocoding.Errors, "; ")
		}
		var plain string
		if json.Unmarshal(body.Error, &plain) == nil && plain != "" {
			return plain
		}
		var detailed struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &detailed) == nil && detailed.Message != "" {
			return detailed.Message
		}
	}
	return "HTTP " + strconv.Itoa(httpErr.StatusCode)
}

func geocodeOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAddressNotFound):
		return "not_found"
	default:
		return "error"
	}
}
