package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zocaloFeature = `{"features":[{"geometry":{"coordinates":[-99.1332,19.4326]},"properties":{"label":"Zócalo, Ciudad de México, CDMX, Mexico"}}]}`

func newTestGeocoder(t *testing.T, cfg GeocoderConfig, handler http.HandlerFunc) *ORSGeocoder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL + "/geocode/search"
	cfg.APIKey = "test-key"
	cfg.Timeout = 2 * time.Second
	return NewORSGeocoder(cfg)
}

func TestGeocode_Success(t *testing.T) {
	g := newTestGeocoder(t, GeocoderConfig{Country: "mx"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "Zocalo CDMX", r.URL.Query().Get("text"))
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		assert.Equal(t, "MX", r.URL.Query().Get("boundary.country"))
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(zocaloFeature))
	})

	result, err := g.Geocode(context.Background(), "  Zocalo CDMX ")
	require.NoError(t, err)
	assert.Equal(t, "Zócalo, Ciudad de México, CDMX, Mexico", result.Label)
	assert.Equal(t, -99.1332, result.Coordinate.Longitude)
	assert.Equal(t, 19.4326, result.Coordinate.Latitude)
	assert.NotEmpty(t, result.H3Cell)
}

func TestGeocode_NoCountryBias(t *testing.T) {
	g := newTestGeocoder(t, GeocoderConfig{}, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["boundary.country"]
		assert.False(t, present)
		_, _ = w.Write([]byte(zocaloFeature))
	})

	_, err := g.Geocode(context.Background(), "Zocalo")
	require.NoError(t, err)
}

func TestGeocode_ZeroMatchesIsNotFound(t *testing.T) {
	g := newTestGeocoder(t, GeocoderConfig{}, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	})

	result, err := g.Geocode(context.Background(), "qwertyuiop asdfgh")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestGeocode_EmptyAddressMakesNoRequest(t *testing.T) {
	var calls int32
	g := newTestGeocoder(t, GeocoderConfig{}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := g.Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyAddress)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGeocode_ProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"pelias errors", http.StatusBadRequest, `{"geocoding":{"errors":["invalid param 'text': text length, must be >0"]}}`, "invalid param 'text'"},
		{"gateway error", http.StatusForbidden, `{"error":"Access to this API has been disallowed"}`, "Access to this API has been disallowed"},
		{"opaque error", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGeocoder(t, GeocoderConfig{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.Geocode(context.Background(), "Reforma 222")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrAddressNotFound))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGeocode_InvalidCoordinates(t *testing.T) {
	g := newTestGeocoder(t, GeocoderConfig{}, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-99.1]},"properties":{"label":"x"}}]}`))
	})

	_, err := g.Geocode(context.Background(), "Reforma 222")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid coordinates")
}

func TestGeocode_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls int32
	settings := resilience.BuildSettings("geocode-test", 60, 60, 2, 1)
	g := newTestGeocoder(t, GeocoderConfig{Breaker: &settings}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"features":[]}`))
	})

	for i := 0; i < 4; i++ {
		_, err := g.Geocode(context.Background(), "nowhere")
		require.ErrorIs(t, err, ErrAddressNotFound)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, "closed", g.breaker.State())
}

func TestGeocode_BreakerOpens(t *testing.T) {
	var calls int32
	settings := resilience.BuildSettings("geocode-open", 60, 60, 2, 1)
	g := newTestGeocoder(t, GeocoderConfig{Breaker: &settings}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, _ = g.Geocode(context.Background(), "Reforma 222")
	}

	_, err := g.Geocode(context.Background(), "Reforma 222")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Contains(t, err.Error(), "temporarily unavailable")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
