package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GeocodingResult), args.Error(1)
}

func setupTestContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/geocode", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_Geocode_Success(t *testing.T) {
	m := new(mockGeocoder)
	m.On("Geocode", mock.Anything, "Zocalo").Return(&GeocodingResult{
		Label:      "Zócalo, CDMX",
		Coordinate: geoutil.Coordinate{Longitude: -99.1332, Latitude: 19.4326},
		H3Cell:     "8949930c1a7ffff",
	}, nil)

	c, w := setupTestContext(`{"address":"Zocalo"}`)
	NewHandler(m).Geocode(c)

	assert.Equal(t, http.StatusOK, w.Code)
	body := parseResponse(t, w)
	assert.Equal(t, []interface{}{-99.1332, 19.4326}, body["coordinates"])
	assert.Equal(t, "Zócalo, CDMX", body["address"])
	m.AssertExpectations(t)
}

func TestHandler_Geocode_MissingAddress(t *testing.T) {
	for _, payload := range []string{`{}`, `{"address":"   "}`, ``} {
		m := new(mockGeocoder)
		c, w := setupTestContext(payload)
		NewHandler(m).Geocode(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		m.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	}
}

func TestHandler_Geocode_NotFoundIs500(t *testing.T) {
	m := new(mockGeocoder)
	m.On("Geocode", mock.Anything, "nowhere").Return(nil, ErrAddressNotFound)

	c, w := setupTestContext(`{"address":"nowhere"}`)
	NewHandler(m).Geocode(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "address not found", parseResponse(t, w)["error"])
}

func TestHandler_Geocode_ProviderFailure(t *testing.T) {
	m := new(mockGeocoder)
	m.On("Geocode", mock.Anything, "Reforma").Return(nil, errors.New("geocoding error: HTTP 502"))

	c, w := setupTestContext(`{"address":"Reforma"}`)
	NewHandler(m).Geocode(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "geocoding failed", parseResponse(t, w)["error"])
}
