package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Route planning span attributes
const (
	RouteProfileKey      = attribute.Key("route.profile")
	RoutePolicyKey       = attribute.Key("route.policy")
	RouteDistanceKey     = attribute.Key("route.distance_meters")
	RouteDurationKey     = attribute.Key("route.duration_seconds")
	RouteOutcomeKey      = attribute.Key("route.outcome")
	GreatCircleKey       = attribute.Key("route.great_circle_meters")
	StartLongitudeKey    = attribute.Key("route.start.longitude")
	StartLatitudeKey     = attribute.Key("route.start.latitude")
	EndLongitudeKey      = attribute.Key("route.end.longitude")
	EndLatitudeKey       = attribute.Key("route.end.latitude")
	ExternalServiceKey   = attribute.Key("external.service")
	ExternalOperationKey = attribute.Key("external.operation")
)

// TraceExternalAPI wraps an outbound provider call in a client span.
func TraceExternalAPI(ctx context.Context, tracerName, serviceName, operation string, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, tracerName, fmt.Sprintf("%s.%s", serviceName, operation),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		ExternalServiceKey.String(serviceName),
		ExternalOperationKey.String(operation),
	)

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// EndpointAttributes describes the start and end coordinates of a route.
func EndpointAttributes(startLon, startLat, endLon, endLat float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		StartLongitudeKey.Float64(startLon),
		StartLatitudeKey.Float64(startLat),
		EndLongitudeKey.Float64(endLon),
		EndLatitudeKey.Float64(endLat),
	}
}

// RouteAttributes describes a single provider route.
func RouteAttributes(profile string, distanceMeters, durationSeconds float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		RouteProfileKey.String(profile),
		RouteDistanceKey.Float64(distanceMeters),
		RouteDurationKey.Float64(durationSeconds),
	}
}
