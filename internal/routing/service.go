package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/JesusSantiago31/API-GPS/internal/geo"
	"github.com/JesusSantiago31/API-GPS/internal/maps"
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "routing.planner"

// Planner evaluates route requests against the geocoder and the route
// provider. It holds no per-request state and is safe for concurrent use.
type Planner struct {
	geocoder geo.Geocoder
	provider maps.RouteProvider
	settings Settings
}

// NewPlanner creates a new route planner.
func NewPlanner(geocoder geo.Geocoder, provider maps.RouteProvider, settings Settings) *Planner {
	return &Planner{
		geocoder: geocoder,
		provider: provider,
		settings: settings.withDefaults(),
	}
}

// Settings returns the effective planner settings.
func (p *Planner) Settings() Settings {
	return p.settings
}

// plan is a validated request with its selectors resolved.
type plan struct {
	req         RouteRequest
	vehicle     VehicleClass
	grade       FuelGrade
	consumption float64
	price       float64
}

// profileOutcome is what one provider call produced.
type profileOutcome struct {
	route *maps.Route
	err   error
}

// PlanRoute resolves the endpoints, applies the distance pre-check,
// requests routes per the evaluation policy and enforces the constraints.
// Any error returned is a *Rejection.
func (p *Planner) PlanRoute(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "routing.PlanRoute")
	defer span.End()
	span.SetAttributes(attribute.String("route.policy", string(p.settings.Policy)))

	result, rej := p.planRoute(ctx, req)
	if rej != nil {
		span.SetAttributes(tracing.RouteOutcomeKey.String(string(rej.Kind)))
		if rej.Kind == KindProviderError {
			tracing.RecordError(ctx, rej)
			logger.ErrorContext(ctx, "route planning failed",
				zap.String("kind", string(rej.Kind)),
				zap.String("detail", rej.Detail),
				zap.Error(rej.Err),
			)
		} else {
			logger.InfoContext(ctx, "route request rejected",
				zap.String("kind", string(rej.Kind)),
				zap.String("reason", rej.Message),
			)
		}
		recordPlanOutcome(string(rej.Kind), "")
		return nil, rej
	}

	span.SetAttributes(
		tracing.RouteOutcomeKey.String("success"),
		tracing.RouteProfileKey.String(string(result.Profile)),
	)
	recordPlanOutcome("success", result.Profile.Mode())
	recordFuelCost(result)
	return result, nil
}

func (p *Planner) planRoute(ctx context.Context, req RouteRequest) (*RouteResult, *Rejection) {
	pl, rej := p.validate(req)
	if rej != nil {
		return nil, rej
	}

	start, end, rej := p.resolveEndpoints(ctx, req)
	if rej != nil {
		return nil, rej
	}
	tracing.AddSpanAttributes(ctx, tracing.EndpointAttributes(start.Coordinate.Longitude, start.Coordinate.Latitude, end.Coordinate.Longitude, end.Coordinate.Latitude)...)

	// Straight-line distance is a lower bound on any routed distance, so
	// breaching the limit here avoids a pointless provider call.
	greatCircle := geoutil.Distance(start.Coordinate, end.Coordinate)
	tracing.AddSpanAttributes(ctx, tracing.GreatCircleKey.Float64(greatCircle))
	limit := p.settings.MaxDistanceMeters
	if req.MaxDistanceMeters != nil {
		limit = *req.MaxDistanceMeters
	}
	// Written so a non-finite distance is rejected rather than let through.
	if !(greatCircle <= limit) {
		return nil, DistanceExceeded("great_circle", limit, greatCircle)
	}

	var driving, walking *ProfileRoute
	reasons := make(map[string]string)
	switch p.settings.Policy {
	case PolicyDrivingFirst:
		driving, walking, rej = p.evaluateDrivingFirst(ctx, pl, start.Coordinate, end.Coordinate, reasons)
	default:
		driving, walking, rej = p.evaluateDualProfile(ctx, pl, start.Coordinate, end.Coordinate, reasons)
	}
	if rej != nil {
		return nil, rej
	}

	if ctx.Err() != nil {
		return nil, ProviderFailure("request cancelled", ctx.Err())
	}

	result := &RouteResult{
		Driving:           driving,
		Walking:           walking,
		Currency:          p.settings.Fuel.Currency(),
		FuelGrade:         pl.grade,
		VehicleClass:      pl.vehicle,
		SpeedKmh:          req.SpeedKmh,
		Start:             start.Coordinate,
		End:               end.Coordinate,
		StartAddress:      start.Label,
		EndAddress:        end.Label,
		GreatCircleMeters: greatCircle,
	}
	if len(reasons) > 0 {
		result.Unavailable = reasons
	}

	primary := driving
	if primary == nil {
		primary = walking
	}
	result.Profile = primary.Profile
	result.Geometry = primary.Geometry
	result.EncodedPolyline = primary.EncodedPolyline
	result.DistanceMeters = primary.DistanceMeters
	result.DurationSeconds = primary.DurationSeconds
	result.FuelUsedLiters = primary.FuelUsedLiters
	result.FuelCost = primary.FuelCost

	return result, nil
}

// validate checks structure and resolves the fuel selectors.
func (p *Planner) validate(req RouteRequest) (*plan, *Rejection) {
	if req.Start.IsZero() {
		return nil, InvalidInput("start", "a start address or coordinate is required")
	}
	if req.End.IsZero() {
		return nil, InvalidInput("end", "an end address or coordinate is required")
	}
	if req.Start.Coordinate != nil {
		if err := req.Start.Coordinate.Validate(); err != nil {
			return nil, InvalidInput("start", "invalid start coordinate: %v", err)
		}
	}
	if req.End.Coordinate != nil {
		if err := req.End.Coordinate.Validate(); err != nil {
			return nil, InvalidInput("end", "invalid end coordinate: %v", err)
		}
	}

	if rej := checkLimit("max_distance", req.MaxDistanceMeters); rej != nil {
		return nil, rej
	}
	if rej := checkLimit("max_duration", req.MaxDurationMinutes); rej != nil {
		return nil, rej
	}
	if rej := checkLimit("max_cost", req.MaxCost); rej != nil {
		return nil, rej
	}

	if req.SpeedKmh != nil {
		speed := *req.SpeedKmh
		if math.IsNaN(speed) || speed <= 0 || speed > p.settings.MaxSpeedKmh {
			return nil, InvalidInput("speed", "speed must be greater than 0 and at most %.0f km/h, got %v", p.settings.MaxSpeedKmh, speed)
		}
	}

	vehicle := req.VehicleClass
	if vehicle == "" {
		vehicle = DefaultVehicleClass
	}
	consumption, ok := p.settings.Fuel.Consumption(vehicle)
	if !ok {
		return nil, InvalidInput("vehicle_type", "unknown vehicle type %q, expected one of %s",
			vehicle, strings.Join(p.settings.Fuel.VehicleClasses(), ", "))
	}

	grade := req.FuelGrade
	if grade == "" {
		grade = DefaultFuelGrade
	}
	price, ok := p.settings.Fuel.Price(grade)
	if !ok {
		return nil, InvalidInput("fuel_type", "unknown fuel type %q, expected one of %s",
			grade, strings.Join(p.settings.Fuel.Grades(), ", "))
	}

	return &plan{
		req:         req,
		vehicle:     vehicle,
		grade:       grade,
		consumption: consumption,
		price:       price,
	}, nil
}

func checkLimit(field string, v *float64) *Rejection {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return InvalidInput(field, "%s must be a non-negative number, got %v", field, *v)
	}
	return nil
}

// resolvedEndpoint is an endpoint with a known coordinate.
type resolvedEndpoint struct {
	Coordinate geoutil.Coordinate
	Label      string
}

// resolveEndpoints geocodes address-only endpoints. Both lookups run
// concurrently; the start failure is reported first when both fail.
func (p *Planner) resolveEndpoints(ctx context.Context, req RouteRequest) (resolvedEndpoint, resolvedEndpoint, *Rejection) {
	var start, end resolvedEndpoint
	var startErr, endErr *Rejection

	var g errgroup.Group
	g.Go(func() error {
		start, startErr = p.resolveEndpoint(ctx, "start", req.Start)
		return nil
	})
	g.Go(func() error {
		end, endErr = p.resolveEndpoint(ctx, "end", req.End)
		return nil
	})
	_ = g.Wait()

	if startErr != nil {
		return start, end, startErr
	}
	if endErr != nil {
		return start, end, endErr
	}
	return start, end, nil
}

func (p *Planner) resolveEndpoint(ctx context.Context, which string, ep Endpoint) (resolvedEndpoint, *Rejection) {
	address := strings.TrimSpace(ep.Address)
	if ep.Coordinate != nil {
		return resolvedEndpoint{Coordinate: *ep.Coordinate, Label: address}, nil
	}

	if p.geocoder == nil {
		return resolvedEndpoint{}, ProviderFailure("no geocoder configured", nil)
	}

	result, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, geo.ErrAddressNotFound) {
			return resolvedEndpoint{}, AddressNotFound(which, address, err)
		}
		return resolvedEndpoint{}, ProviderFailure(fmt.Sprintf("geocoding %s address: %v", which, err), err)
	}
	if err := result.Coordinate.Validate(); err != nil {
		return resolvedEndpoint{}, ProviderFailure(fmt.Sprintf("geocoder returned an invalid %s coordinate: %v", which, err), err)
	}

	label := result.Label
	if label == "" {
		label = address
	}
	return resolvedEndpoint{Coordinate: result.Coordinate, Label: label}, nil
}

// evaluateDualProfile requests both profiles concurrently. Constraint
// breaches only discard the offending profile.
func (p *Planner) evaluateDualProfile(ctx context.Context, pl *plan, start, end geoutil.Coordinate, reasons map[string]string) (*ProfileRoute, *ProfileRoute, *Rejection) {
	var drivingOut, walkingOut profileOutcome

	var g errgroup.Group
	g.Go(func() error {
		drivingOut.route, drivingOut.err = p.provider.GetRoute(ctx, start, end, maps.ProfileDriving)
		return nil
	})
	g.Go(func() error {
		walkingOut.route, walkingOut.err = p.provider.GetRoute(ctx, start, end, maps.ProfileWalking)
		return nil
	})
	_ = g.Wait()

	var driving, walking *ProfileRoute
	var breached bool
	if drivingOut.err != nil {
		reasons[maps.ProfileDriving.Mode()] = unavailableReason(ctx, maps.ProfileDriving, drivingOut.err)
	} else {
		route, rej := p.evaluateDriving(pl, drivingOut.route)
		if rej != nil {
			breached = true
			reasons[maps.ProfileDriving.Mode()] = rej.Message
		} else {
			driving = route
		}
	}

	if walkingOut.err != nil {
		reasons[maps.ProfileWalking.Mode()] = unavailableReason(ctx, maps.ProfileWalking, walkingOut.err)
	} else {
		route, rej := p.evaluateWalking(pl, walkingOut.route)
		if rej != nil {
			breached = true
			reasons[maps.ProfileWalking.Mode()] = rej.Message
		} else {
			walking = route
		}
	}

	if driving == nil && walking == nil {
		return nil, nil, p.nothingUsable(ctx, breached, reasons, drivingOut.err, walkingOut.err)
	}
	return driving, walking, nil
}

// evaluateDrivingFirst requests walking only when driving is unavailable.
// A driving constraint breach ends the request.
func (p *Planner) evaluateDrivingFirst(ctx context.Context, pl *plan, start, end geoutil.Coordinate, reasons map[string]string) (*ProfileRoute, *ProfileRoute, *Rejection) {
	drivingRoute, drivingErr := p.provider.GetRoute(ctx, start, end, maps.ProfileDriving)
	if drivingErr == nil {
		route, rej := p.evaluateDriving(pl, drivingRoute)
		if rej != nil {
			return nil, nil, rej
		}
		return route, nil, nil
	}
	reasons[maps.ProfileDriving.Mode()] = unavailableReason(ctx, maps.ProfileDriving, drivingErr)

	if ctx.Err() != nil {
		return nil, nil, ProviderFailure("request cancelled", ctx.Err())
	}

	walkingRoute, walkingErr := p.provider.GetRoute(ctx, start, end, maps.ProfileWalking)
	if walkingErr != nil {
		reasons[maps.ProfileWalking.Mode()] = unavailableReason(ctx, maps.ProfileWalking, walkingErr)
		return nil, nil, p.nothingUsable(ctx, false, reasons, drivingErr, walkingErr)
	}

	route, rej := p.evaluateWalking(pl, walkingRoute)
	if rej != nil {
		reasons[maps.ProfileWalking.Mode()] = rej.Message
		return nil, nil, NoRouteAvailable(reasons)
	}
	return nil, route, nil
}

// evaluateDriving derives fuel and duration, then applies the distance,
// duration and cost limits in that order.
func (p *Planner) evaluateDriving(pl *plan, route *maps.Route) (*ProfileRoute, *Rejection) {
	out := newProfileRoute(maps.ProfileDriving, route)
	if pl.req.SpeedKmh != nil {
		out.DurationSeconds = route.DistanceKm() / *pl.req.SpeedKmh * 3600
	}
	out.FuelUsedLiters = FuelUsed(route.DistanceMeters, pl.consumption)
	out.FuelCost = FuelCost(out.FuelUsedLiters, pl.price)

	mode := maps.ProfileDriving.Mode()
	if limit := pl.req.MaxDistanceMeters; limit != nil && out.DistanceMeters > *limit {
		return nil, DistanceExceeded(mode, *limit, out.DistanceMeters)
	}
	if limit := pl.req.MaxDurationMinutes; limit != nil && out.DurationMinutes() > *limit {
		return nil, DurationExceeded(mode, *limit, out.DurationMinutes())
	}
	if limit := pl.req.MaxCost; limit != nil && out.FuelCost > *limit {
		return nil, CostExceeded(*limit, out.FuelCost, p.settings.Fuel.Currency())
	}
	return out, nil
}

// evaluateWalking applies the distance and duration limits. Walking burns no fuel.
func (p *Planner) evaluateWalking(pl *plan, route *maps.Route) (*ProfileRoute, *Rejection) {
	out := newProfileRoute(maps.ProfileWalking, route)

	mode := maps.ProfileWalking.Mode()
	if limit := pl.req.MaxDistanceMeters; limit != nil && out.DistanceMeters > *limit {
		return nil, DistanceExceeded(mode, *limit, out.DistanceMeters)
	}
	if limit := pl.req.MaxDurationMinutes; limit != nil && out.DurationMinutes() > *limit {
		return nil, DurationExceeded(mode, *limit, out.DurationMinutes())
	}
	return out, nil
}

// nothingUsable picks the rejection when no profile survived. Only a
// request where every profile failed for reasons unrelated to the route
// itself is reported as a provider failure.
func (p *Planner) nothingUsable(ctx context.Context, breached bool, reasons map[string]string, errs ...error) *Rejection {
	if ctx.Err() != nil {
		return ProviderFailure("request cancelled", ctx.Err())
	}
	if breached {
		return NoRouteAvailable(reasons)
	}
	for _, err := range errs {
		if err == nil || maps.IsNoRoute(err) || maps.IsDistanceTooLarge(err) {
			return NoRouteAvailable(reasons)
		}
	}
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		details = append(details, err.Error())
	}
	return ProviderFailure(strings.Join(details, "; "), errs[0])
}

func newProfileRoute(profile maps.TravelProfile, route *maps.Route) *ProfileRoute {
	return &ProfileRoute{
		Profile:         profile,
		Geometry:        route.Geometry,
		EncodedPolyline: route.EncodedPolyline,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
	}
}

// unavailableReason is the caller-facing text for a failed profile. Only
// the translated no-route and too-large messages are passed through; the
// raw provider text stays in the logs.
func unavailableReason(ctx context.Context, profile maps.TravelProfile, err error) string {
	var pe *maps.ProviderError
	if errors.As(err, &pe) && (pe.NoRoute() || pe.DistanceTooLarge()) {
		return pe.Message
	}
	logger.WarnContext(ctx, "route profile unavailable",
		zap.String("profile", string(profile)),
		zap.Error(err),
	)
	return fmt.Sprintf("%s routing is temporarily unavailable", profile.Mode())
}
