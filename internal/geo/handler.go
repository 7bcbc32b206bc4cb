package geo

import (
	"errors"
	"net/http"

	"github.com/JesusSantiago31/API-GPS/pkg/common"
	"github.com/JesusSantiago31/API-GPS/pkg/validation"
	"github.com/gin-gonic/gin"
)

// GeocodeRequest is the body of POST /geocode.
type GeocodeRequest struct {
	Address string `json:"address" validate:"required,address"`
}

// GeocodeResponse mirrors the front-end contract: coordinates are [lng, lat].
type GeocodeResponse struct {
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address"`
	H3Cell      string    `json:"h3_cell,omitempty"`
}

// Handler handles HTTP requests for geocoding
type Handler struct {
	geocoder Geocoder
}

// NewHandler creates a new geocoding handler
func NewHandler(geocoder Geocoder) *Handler {
	return &Handler{geocoder: geocoder}
}

// RegisterRoutes registers geocoding routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/geocode", h.Geocode)
}

// Geocode resolves an address. Every geocoding failure is a 500 for
// compatibility with the served front-end; only a missing address is a 400.
func (h *Handler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, ErrEmptyAddress.Error())
		return
	}

	result, err := h.geocoder.Geocode(c.Request.Context(), req.Address)
	if err != nil {
		message := "geocoding failed"
		if errors.Is(err, ErrAddressNotFound) {
			message = ErrAddressNotFound.Error()
		}
		common.HandleServiceError(c, common.NewInternalError(message, err), message)
		return
	}

	common.SuccessResponse(c, GeocodeResponse{
		Coordinates: result.Coordinate.Pair(),
		Address:     result.Label,
		H3Cell:      result.H3Cell,
	})
}
