package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Start    []float64 `json:"start" validate:"omitempty,lnglat"`
	Address  string    `json:"start_text" validate:"omitempty,address"`
	Speed    *float64  `json:"speed" validate:"omitempty,gt=0"`
	MaxCost  *float64  `json:"max_cost" validate:"omitempty,gte=0"`
	FuelType string    `json:"fuel_type" validate:"omitempty,slug"`
	Name     string    `json:"name" validate:"required"`
}

func floatPtr(v float64) *float64 { return &v }

// ---------------------------------------------------------------------------
// ValidateCoordinates
// ---------------------------------------------------------------------------

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{"mexico city", 19.4326, -99.1332, false},
		{"poles and dateline", 90, 180, false},
		{"south-west corner", -90, -180, false},
		{"latitude too high", 90.0001, 0, true},
		{"longitude too low", 0, -180.0001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lng)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ValidateStringLength
// ---------------------------------------------------------------------------

func TestValidateStringLength(t *testing.T) {
	assert.NoError(t, ValidateStringLength("Zócalo", 1, 6))
	assert.Error(t, ValidateStringLength("   ", 1, 10))
	assert.Error(t, ValidateStringLength("abcdef", 1, 5))
	assert.NoError(t, ValidateStringLength("abcdef", 1, 0))
}

// ---------------------------------------------------------------------------
// ValidateStruct
// ---------------------------------------------------------------------------

func TestValidateStruct_Valid(t *testing.T) {
	req := sampleRequest{
		Start:    []float64{-99.1332, 19.4326},
		Address:  "Zócalo, Ciudad de México",
		Speed:    floatPtr(60),
		MaxCost:  floatPtr(0),
		FuelType: "regular",
		Name:     "x",
	}
	assert.NoError(t, ValidateStruct(req))
}

func TestValidateStruct_ReportsJSONFieldNames(t *testing.T) {
	req := sampleRequest{
		Start:    []float64{-99.1332},
		Address:  "   ",
		Speed:    floatPtr(0),
		MaxCost:  floatPtr(-1),
		FuelType: "Regular!",
	}

	err := ValidateStruct(req)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"fuel_type", "max_cost", "name", "speed", "start", "start_text"}, ve.Fields())
	assert.Equal(t, "is required", ve.Errors["name"])
	assert.Equal(t, "must be greater than 0", ve.Errors["speed"])
	assert.Contains(t, ve.Error(), "start: must be a [longitude, latitude] pair within range")
}

func TestValidateStruct_LngLatOutOfRange(t *testing.T) {
	err := ValidateStruct(sampleRequest{Start: []float64{200, 10}, Name: "x"})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"start"}, ve.Fields())
}

func TestValidationError_AddErrorKeepsFirst(t *testing.T) {
	ve := &ValidationError{}
	assert.False(t, ve.HasErrors())
	ve.AddError("speed", "first")
	ve.AddError("speed", "second")
	assert.True(t, ve.HasErrors())
	assert.Equal(t, "first", ve.Errors["speed"])
}
