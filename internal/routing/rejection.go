package routing

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// RejectionKind classifies why a route request was refused.
type RejectionKind string

const (
	KindInvalidInput     RejectionKind = "invalid_input"
	KindAddressNotFound  RejectionKind = "address_not_found"
	KindDistanceExceeded RejectionKind = "distance_exceeded"
	KindDurationExceeded RejectionKind = "duration_exceeded"
	KindCostExceeded     RejectionKind = "cost_exceeded"
	KindNoRouteAvailable RejectionKind = "no_route_available"
	KindProviderError    RejectionKind = "provider_error"
)

var rejectionStatus = map[RejectionKind]int{
	KindInvalidInput:     http.StatusBadRequest,
	KindAddressNotFound:  http.StatusBadRequest,
	KindDistanceExceeded: http.StatusBadRequest,
	KindDurationExceeded: http.StatusBadRequest,
	KindCostExceeded:     http.StatusBadRequest,
	KindNoRouteAvailable: http.StatusNotFound,
	KindProviderError:    http.StatusInternalServerError,
}

// Rejection is the only error PlanRoute returns. Message carries the
// offending values so callers can adjust the request.
type Rejection struct {
	Kind    RejectionKind
	Message string

	Field   string
	Which   string
	Limit   float64
	Actual  float64
	Reasons map[string]string
	Detail  string

	Err error
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// HTTPStatus maps the rejection kind to a response status.
func (r *Rejection) HTTPStatus() int {
	if status, ok := rejectionStatus[r.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Details returns the structured fields that apply to this kind.
func (r *Rejection) Details() map[string]interface{} {
	details := map[string]interface{}{"kind": string(r.Kind)}
	switch r.Kind {
	case KindInvalidInput:
		details["field"] = r.Field
	case KindAddressNotFound:
		details["which"] = r.Which
	case KindDistanceExceeded, KindDurationExceeded, KindCostExceeded:
		details["limit"] = r.Limit
		details["actual"] = r.Actual
		if r.Which != "" {
			details["which"] = r.Which
		}
	case KindNoRouteAvailable:
		if len(r.Reasons) > 0 {
			details["reasons"] = r.Reasons
		}
	case KindProviderError:
		if r.Detail != "" {
			details["detail"] = r.Detail
		}
	}
	return details
}

// InvalidInput rejects a structurally invalid field.
func InvalidInput(field, format string, args ...interface{}) *Rejection {
	return &Rejection{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// AddressNotFound rejects an endpoint address the geocoder could not match.
func AddressNotFound(which, address string, err error) *Rejection {
	return &Rejection{
		Kind:    KindAddressNotFound,
		Message: fmt.Sprintf("%s address not found: %q", which, address),
		Which:   which,
		Err:     err,
	}
}

// DistanceExceeded rejects a distance above its limit. which names the
// measurement, e.g. "great_circle" or a travel mode.
func DistanceExceeded(which string, limit, actual float64) *Rejection {
	subject := "the straight-line distance"
	if which != "great_circle" {
		subject = fmt.Sprintf("the %s route distance", which)
	}
	return &Rejection{
		Kind:    KindDistanceExceeded,
		Message: fmt.Sprintf("%s of %.2f km exceeds the maximum of %.2f km", subject, actual/1000, limit/1000),
		Which:   which,
		Limit:   limit,
		Actual:  actual,
	}
}

// DurationExceeded rejects a duration, in minutes, above the limit.
func DurationExceeded(which string, limit, actual float64) *Rejection {
	return &Rejection{
		Kind:    KindDurationExceeded,
		Message: fmt.Sprintf("the %s route takes %.2f min, above the maximum of %.2f min", which, actual, limit),
		Which:   which,
		Limit:   limit,
		Actual:  actual,
	}
}

// CostExceeded rejects a fuel cost above the limit.
func CostExceeded(limit, actual float64, currency string) *Rejection {
	return &Rejection{
		Kind:    KindCostExceeded,
		Message: fmt.Sprintf("the fuel cost of %.2f %s exceeds the maximum of %.2f %s", actual, currency, limit, currency),
		Which:   "driving",
		Limit:   limit,
		Actual:  actual,
	}
}

// NoRouteAvailable reports that no profile produced a usable itinerary.
func NoRouteAvailable(reasons map[string]string) *Rejection {
	msg := "no route available"
	if len(reasons) > 0 {
		modes := make([]string, 0, len(reasons))
		for mode := range reasons {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		parts := make([]string, 0, len(modes))
		for _, mode := range modes {
			parts = append(parts, fmt.Sprintf("%s: %s", mode, reasons[mode]))
		}
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(parts, "; "))
	}
	return &Rejection{
		Kind:    KindNoRouteAvailable,
		Message: msg,
		Reasons: reasons,
	}
}

// ProviderFailure reports an upstream failure. The raw provider text is
// kept in Detail only.
func ProviderFailure(detail string, err error) *Rejection {
	return &Rejection{
		Kind:    KindProviderError,
		Message: "the routing provider could not process the request",
		Detail:  detail,
		Err:     err,
	}
}
