package validation

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxAddressLength bounds free-text addresses sent to the geocoder.
const MaxAddressLength = 512

var (
	// Validate is the global validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Report json field names instead of Go field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = Validate.RegisterValidation("lnglat", validateLngLat)
	_ = Validate.RegisterValidation("address", validateAddress)
	_ = Validate.RegisterValidation("slug", validateSlug)
}

// ValidationError collects per-field validation failures.
type ValidationError struct {
	Errors map[string]string
}

// NewValidationError converts validator errors into a ValidationError.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		ve.AddError(fe.Field(), describe(fe))
	}
	return ve
}

// AddError records a failure for field, keeping the first message.
func (e *ValidationError) AddError(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	if _, exists := e.Errors[field]; !exists {
		e.Errors[field] = message
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields returns the failed field names in sorted order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e *ValidationError) Error() string {
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Errors[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateStruct validates a struct and returns a *ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return "is required"
	case "lnglat":
		return "must be a [longitude, latitude] pair within range"
	case "address":
		return fmt.Sprintf("must be non-blank text of at most %d characters", MaxAddressLength)
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "slug":
		return "must be a lowercase identifier"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// validateLngLat checks a [longitude, latitude] slice.
func validateLngLat(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice || field.Len() != 2 {
		return false
	}
	lng := field.Index(0).Float()
	lat := field.Index(1).Float()
	if math.IsNaN(lng) || math.IsNaN(lat) {
		return false
	}
	return ValidateCoordinates(lat, lng) == nil
}

func validateAddress(fl validator.FieldLevel) bool {
	return ValidateStringLength(fl.Field().String(), 1, MaxAddressLength) == nil
}

// validateSlug accepts lowercase selectors such as fuel grades and vehicle classes.
func validateSlug(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 32 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// ValidateCoordinates validates latitude and longitude
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90.0 || latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", latitude)
	}
	if longitude < -180.0 || longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", longitude)
	}
	return nil
}

// ValidateStringLength validates string length in characters
func ValidateStringLength(s string, min, max int) error {
	length := len([]rune(strings.TrimSpace(s)))
	if length < min {
		return fmt.Errorf("string length must be at least %d characters, got: %d", min, length)
	}
	if max > 0 && length > max {
		return fmt.Errorf("string length must be at most %d characters, got: %d", max, length)
	}
	return nil
}
