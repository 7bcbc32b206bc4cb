package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JesusSantiago31/API-GPS/internal/maps"
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) PlanRoute(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RouteResult), args.Error(1)
}

func setupTestContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/calculate_route", bytes.NewBufferString(body))
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

func TestCalculateRoute_FrontEndPayload(t *testing.T) {
	planner := new(mockPlanner)
	planner.On("PlanRoute", mock.Anything, mock.MatchedBy(func(req RouteRequest) bool {
		return req.Start.Coordinate != nil &&
			*req.Start.Coordinate == mexicoCity &&
			*req.End.Coordinate == nearby &&
			*req.MaxDistanceMeters == 5000 &&
			req.MaxDurationMinutes == nil &&
			*req.MaxCost == 150 &&
			req.FuelGrade == FuelPremium &&
			req.VehicleClass == VehicleCar
	})).Return(&RouteResult{
		Profile:         maps.ProfileDriving,
		EncodedPolyline: "drive",
		Geometry:        []geoutil.Coordinate{mexicoCity, nearby},
		DistanceMeters:  1200,
		DurationSeconds: 300,
		FuelUsedLiters:  0.192,
		FuelCost:        4.704,
		Currency:        "MXN",
		Driving:         &ProfileRoute{Profile: maps.ProfileDriving, EncodedPolyline: "drive", DistanceMeters: 1200, DurationSeconds: 300},
		Walking:         &ProfileRoute{Profile: maps.ProfileWalking, EncodedPolyline: "walk", DistanceMeters: 1000, DurationSeconds: 800},
		FuelGrade:       FuelPremium,
		VehicleClass:    VehicleCar,
		Start:           mexicoCity,
		End:             nearby,
	}, nil)

	c, w := setupTestContext(`{
		"start": [-99.1332, 19.4326],
		"end": [-99.1269, 19.4284],
		"max_distance": 5000,
		"max_duration": 0,
		"tipo_gasolina": "Premium",
		"precio_maximo": 150
	}`)
	NewHandler(planner).CalculateRoute(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := parseResponse(t, w)
	assert.Equal(t, true, body["has_driving_route"])
	assert.Equal(t, true, body["has_walking_route"])
	assert.Equal(t, "drive", body["driving_geometry"])
	assert.Equal(t, "walk", body["walking_geometry"])
	assert.Equal(t, 1200.0, body["distance"])
	assert.Equal(t, 300.0, body["duration"])
	assert.Equal(t, 0.192, body["fuel_used"])
	assert.Equal(t, 1000.0, body["walking_distance"])
	assert.Equal(t, "driving", body["profile"])
	assert.Equal(t, "premium", body["fuel_type"])
	assert.Equal(t, []interface{}{-99.1332, 19.4326}, body["start_coords"])
	assert.Len(t, body["path"], 2)
	planner.AssertExpectations(t)
}

func TestCalculateRoute_AddressPayload(t *testing.T) {
	planner := new(mockPlanner)
	planner.On("PlanRoute", mock.Anything, mock.MatchedBy(func(req RouteRequest) bool {
		return req.Start.Coordinate == nil &&
			req.Start.Address == "Zocalo" &&
			req.End.Address == "Bellas Artes" &&
			req.VehicleClass == VehicleMotorcycle &&
			req.FuelGrade == FuelRegular &&
			*req.SpeedKmh == 80
	})).Return(&RouteResult{
		Profile:      maps.ProfileWalking,
		Walking:      &ProfileRoute{Profile: maps.ProfileWalking},
		StartAddress: "Zócalo",
		EndAddress:   "Bellas Artes",
	}, nil)

	c, w := setupTestContext(`{"start_text":"Zocalo","end_text":"Bellas Artes","vehicle_type":"moto","speed":80}`)
	NewHandler(planner).CalculateRoute(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := parseResponse(t, w)
	assert.Equal(t, false, body["has_driving_route"])
	assert.Equal(t, "Zócalo", body["start_address"])
	planner.AssertExpectations(t)
}

func TestCalculateRoute_RejectionStatusCodes(t *testing.T) {
	tests := []struct {
		rej    *Rejection
		status int
	}{
		{InvalidInput("speed", "speed must be positive"), http.StatusBadRequest},
		{AddressNotFound("end", "nowhere", nil), http.StatusBadRequest},
		{DistanceExceeded("great_circle", 6000000, 9000000), http.StatusBadRequest},
		{DurationExceeded("driving", 10, 20), http.StatusBadRequest},
		{CostExceeded(100, 360, "MXN"), http.StatusBadRequest},
		{NoRouteAvailable(map[string]string{"driving": "x", "walking": "y"}), http.StatusNotFound},
		{ProviderFailure("upstream 503", errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.rej.Kind), func(t *testing.T) {
			planner := new(mockPlanner)
			planner.On("PlanRoute", mock.Anything, mock.Anything).Return(nil, tt.rej)

			c, w := setupTestContext(`{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284]}`)
			NewHandler(planner).CalculateRoute(c)

			assert.Equal(t, tt.status, w.Code)
			body := parseResponse(t, w)
			assert.Equal(t, tt.rej.Message, body["error"])
			assert.Equal(t, string(tt.rej.Kind), body["error_code"])
			details := body["details"].(map[string]interface{})
			assert.Equal(t, string(tt.rej.Kind), details["kind"])
		})
	}
}

func TestCalculateRoute_ProviderDetailNotInMessage(t *testing.T) {
	planner := new(mockPlanner)
	planner.On("PlanRoute", mock.Anything, mock.Anything).Return(nil, ProviderFailure("raw upstream text", nil))

	c, w := setupTestContext(`{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284]}`)
	NewHandler(planner).CalculateRoute(c)

	body := parseResponse(t, w)
	assert.NotContains(t, body["error"], "raw upstream text")
	assert.Equal(t, "raw upstream text", body["details"].(map[string]interface{})["detail"])
}

func TestCalculateRoute_UnclassifiedProviderTextNotInBody(t *testing.T) {
	raw := "Unknown internal error: pg pool exhausted at 10.0.3.7"

	t.Run("one profile served", func(t *testing.T) {
		provider := &countingProvider{
			routes: map[maps.TravelProfile]*maps.Route{maps.ProfileWalking: walkingRoute(900, 12*60)},
			errs: map[maps.TravelProfile]error{
				maps.ProfileDriving: maps.NewProviderError(maps.ProfileDriving, 500, 2099, raw, nil),
			},
		}
		c, w := setupTestContext(`{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284]}`)
		NewHandler(NewPlanner(nil, provider, DefaultSettings())).CalculateRoute(c)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotContains(t, w.Body.String(), "pg pool")
		body := parseResponse(t, w)
		unavailable := body["unavailable"].(map[string]interface{})
		assert.Equal(t, "driving routing is temporarily unavailable", unavailable["driving"])
	})

	t.Run("no route available", func(t *testing.T) {
		provider := &countingProvider{errs: map[maps.TravelProfile]error{
			maps.ProfileWalking: maps.NewProviderError(maps.ProfileWalking, 500, 2099, raw, nil),
		}}
		c, w := setupTestContext(`{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284]}`)
		NewHandler(NewPlanner(nil, provider, DefaultSettings())).CalculateRoute(c)

		require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
		assert.NotContains(t, w.Body.String(), "pg pool")
		assert.Contains(t, parseResponse(t, w)["error"], "walking: walking routing is temporarily unavailable")
	})
}

func TestCalculateRoute_NearAntipodalRequestRejected(t *testing.T) {
	provider := &countingProvider{}
	c, w := setupTestContext(`{"start":[-160,-58],"end":[20,58]}`)
	NewHandler(NewPlanner(nil, provider, DefaultSettings())).CalculateRoute(c)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "distance_exceeded", parseResponse(t, w)["error_code"])
	assert.Equal(t, int32(0), provider.calls())
}

func TestCalculateRoute_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"short coordinate", `{"start":[-99.1],"end":[-99.1269,19.4284]}`, "start"},
		{"out of range", `{"start":[-99.1332,19.4326],"end":[190,19.4284]}`, "end"},
		{"negative cost", `{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284],"max_cost":-1}`, "max_cost"},
		{"zero speed", `{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284],"speed":0}`, "speed"},
		{"bad fuel selector", `{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284],"fuel_type":"93 octane"}`, "fuel_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := new(mockPlanner)
			c, w := setupTestContext(tt.body)
			NewHandler(planner).CalculateRoute(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := parseResponse(t, w)
			assert.Equal(t, "invalid_input", body["error_code"])
			assert.Equal(t, tt.field, body["details"].(map[string]interface{})["field"])
			planner.AssertNotCalled(t, "PlanRoute", mock.Anything, mock.Anything)
		})
	}
}

func TestCalculateRoute_MalformedJSON(t *testing.T) {
	planner := new(mockPlanner)
	c, w := setupTestContext(`{"start":`)
	NewHandler(planner).CalculateRoute(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, parseResponse(t, w)["error"], "invalid request body")
}

func TestCalculateRoute_EndToEndWithPlanner(t *testing.T) {
	provider := &countingProvider{routes: map[maps.TravelProfile]*maps.Route{
		maps.ProfileDriving: drivingRoute(5000, 40*60),
		maps.ProfileWalking: walkingRoute(900, 12*60),
	}}
	handler := NewHandler(NewPlanner(nil, provider, DefaultSettings()))

	c, w := setupTestContext(`{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284],"max_duration":15}`)
	handler.CalculateRoute(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := parseResponse(t, w)
	assert.Equal(t, false, body["has_driving_route"])
	assert.Equal(t, true, body["has_walking_route"])
	assert.Equal(t, "walk", body["walking_geometry"])
	assert.Nil(t, body["driving_geometry"])

	c, w = setupTestContext(`{"start":[-99.1332,19.4326],"end":[-99.1269,19.4284],"max_duration":5}`)
	handler.CalculateRoute(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
