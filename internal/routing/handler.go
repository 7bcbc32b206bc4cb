package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/JesusSantiago31/API-GPS/pkg/common"
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/JesusSantiago31/API-GPS/pkg/validation"
	"github.com/gin-gonic/gin"
)

// RoutePlanner is the part of the Planner the handler depends on.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, req RouteRequest) (*RouteResult, error)
}

// CalculateRouteRequest is the body of POST /calculate_route. Coordinates
// are [longitude, latitude]. tipo_gasolina and precio_maximo are accepted
// as aliases of fuel_type and max_cost.
type CalculateRouteRequest struct {
	Start     []float64 `json:"start" validate:"omitempty,lnglat"`
	End       []float64 `json:"end" validate:"omitempty,lnglat"`
	StartText string    `json:"start_text" validate:"omitempty,address"`
	EndText   string    `json:"end_text" validate:"omitempty,address"`

	MaxDistance  *float64 `json:"max_distance" validate:"omitempty,gte=0"`
	MaxDuration  *float64 `json:"max_duration" validate:"omitempty,gte=0"`
	MaxCost      *float64 `json:"max_cost" validate:"omitempty,gte=0"`
	PrecioMaximo *float64 `json:"precio_maximo" validate:"omitempty,gte=0"`

	FuelType     string   `json:"fuel_type" validate:"omitempty,slug"`
	TipoGasolina string   `json:"tipo_gasolina" validate:"omitempty,slug"`
	VehicleType  string   `json:"vehicle_type" validate:"omitempty,slug"`
	Speed        *float64 `json:"speed" validate:"omitempty,gt=0"`
}

// CalculateRouteResponse is the successful /calculate_route body.
// Distances are meters, durations seconds.
type CalculateRouteResponse struct {
	Profile  string      `json:"profile"`
	Geometry string      `json:"geometry"`
	Path     [][]float64 `json:"path"`
	Distance float64     `json:"distance"`
	Duration float64     `json:"duration"`
	FuelUsed float64     `json:"fuel_used"`
	FuelCost float64     `json:"fuel_cost"`
	Currency string      `json:"currency"`

	HasDrivingRoute bool     `json:"has_driving_route"`
	HasWalkingRoute bool     `json:"has_walking_route"`
	DrivingGeometry string   `json:"driving_geometry,omitempty"`
	WalkingGeometry string   `json:"walking_geometry,omitempty"`
	DrivingDistance *float64 `json:"driving_distance,omitempty"`
	DrivingDuration *float64 `json:"driving_duration,omitempty"`
	WalkingDistance *float64 `json:"walking_distance,omitempty"`
	WalkingDuration *float64 `json:"walking_duration,omitempty"`

	Unavailable map[string]string `json:"unavailable,omitempty"`

	FuelType     string    `json:"fuel_type"`
	VehicleType  string    `json:"vehicle_type"`
	Speed        *float64  `json:"speed,omitempty"`
	StartCoords  []float64 `json:"start_coords"`
	EndCoords    []float64 `json:"end_coords"`
	StartAddress string    `json:"start_address,omitempty"`
	EndAddress   string    `json:"end_address,omitempty"`

	GreatCircleDistance float64 `json:"great_circle_distance"`
}

// Handler handles HTTP requests for route planning
type Handler struct {
	planner RoutePlanner
}

// NewHandler creates a new route planning handler
func NewHandler(planner RoutePlanner) *Handler {
	return &Handler{planner: planner}
}

// RegisterRoutes registers route planning routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/calculate_route", h.CalculateRoute)
}

// CalculateRoute plans a route and maps rejections to their status codes.
func (h *Handler) CalculateRoute(c *gin.Context) {
	var body CalculateRouteRequest
	if !common.BindJSON(c, &body) {
		return
	}

	req, rej := body.toRouteRequest()
	if rej != nil {
		respondRejection(c, rej)
		return
	}

	result, err := h.planner.PlanRoute(c.Request.Context(), req)
	if err != nil {
		var r *Rejection
		if errors.As(err, &r) {
			respondRejection(c, r)
			return
		}
		common.HandleServiceError(c, err, "failed to calculate route")
		return
	}

	common.SuccessResponse(c, NewCalculateRouteResponse(result))
}

func respondRejection(c *gin.Context, r *Rejection) {
	appErr := common.NewAppError(r.HTTPStatus(), r.Message, r).
		WithErrorCode(string(r.Kind)).
		WithDetails(r.Details())
	common.HandleServiceError(c, appErr, r.Message)
}

// toRouteRequest normalises aliases and converts the body into a RouteRequest.
// A zero constraint means "no limit", which is what the served form sends
// for an empty input.
func (b CalculateRouteRequest) toRouteRequest() (RouteRequest, *Rejection) {
	b.FuelType = strings.ToLower(strings.TrimSpace(b.FuelType))
	b.TipoGasolina = strings.ToLower(strings.TrimSpace(b.TipoGasolina))
	b.VehicleType = strings.ToLower(strings.TrimSpace(b.VehicleType))

	if err := validation.ValidateStruct(b); err != nil {
		var ve *validation.ValidationError
		if errors.As(err, &ve) {
			field := ve.Fields()[0]
			return RouteRequest{}, InvalidInput(field, "%s %s", field, ve.Errors[field])
		}
		return RouteRequest{}, InvalidInput("body", "%v", err)
	}

	fuel := b.FuelType
	if fuel == "" {
		fuel = b.TipoGasolina
	}
	maxCost := b.MaxCost
	if maxCost == nil {
		maxCost = b.PrecioMaximo
	}

	start, err := endpointFrom(b.Start, b.StartText)
	if err != nil {
		return RouteRequest{}, InvalidInput("start", "invalid start coordinate: %v", err)
	}
	end, err := endpointFrom(b.End, b.EndText)
	if err != nil {
		return RouteRequest{}, InvalidInput("end", "invalid end coordinate: %v", err)
	}

	return RouteRequest{
		Start:              start,
		End:                end,
		MaxDistanceMeters:  positiveOrNil(b.MaxDistance),
		MaxDurationMinutes: positiveOrNil(b.MaxDuration),
		MaxCost:            positiveOrNil(maxCost),
		FuelGrade:          ParseFuelGrade(fuel),
		VehicleClass:       ParseVehicleClass(b.VehicleType),
		SpeedKmh:           b.Speed,
	}, nil
}

func endpointFrom(pair []float64, text string) (Endpoint, error) {
	ep := Endpoint{Address: strings.TrimSpace(text)}
	if len(pair) == 0 {
		return ep, nil
	}
	coord, err := geoutil.NewCoordinate(pair)
	if err != nil {
		return ep, err
	}
	ep.Coordinate = &coord
	return ep, nil
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

// NewCalculateRouteResponse shapes a result for the front-end payload.
func NewCalculateRouteResponse(r *RouteResult) CalculateRouteResponse {
	resp := CalculateRouteResponse{
		Profile:             r.Profile.Mode(),
		Geometry:            r.EncodedPolyline,
		Path:                pairs(r.Geometry),
		Distance:            r.DistanceMeters,
		Duration:            r.DurationSeconds,
		FuelUsed:            r.FuelUsedLiters,
		FuelCost:            r.FuelCost,
		Currency:            r.Currency,
		HasDrivingRoute:     r.HasDriving(),
		HasWalkingRoute:     r.HasWalking(),
		Unavailable:         r.Unavailable,
		FuelType:            string(r.FuelGrade),
		VehicleType:         string(r.VehicleClass),
		Speed:               r.SpeedKmh,
		StartCoords:         r.Start.Pair(),
		EndCoords:           r.End.Pair(),
		StartAddress:        r.StartAddress,
		EndAddress:          r.EndAddress,
		GreatCircleDistance: r.GreatCircleMeters,
	}
	if d := r.Driving; d != nil {
		resp.DrivingGeometry = d.EncodedPolyline
		resp.DrivingDistance = &d.DistanceMeters
		resp.DrivingDuration = &d.DurationSeconds
	}
	if w := r.Walking; w != nil {
		resp.WalkingGeometry = w.EncodedPolyline
		resp.WalkingDistance = &w.DistanceMeters
		resp.WalkingDuration = &w.DurationSeconds
	}
	return resp
}

func pairs(coords []geoutil.Coordinate) [][]float64 {
	out := make([][]float64, 0, len(coords))
	for _, c := range coords {
		out = append(out, c.Pair())
	}
	return out
}
