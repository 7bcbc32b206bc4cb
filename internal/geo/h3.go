package geo

import (
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels used to tag resolved endpoints.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionStreet (~175m edge) identifies the block an address resolved to.
	H3ResolutionStreet = 9

	// H3ResolutionDistrict (~1.2 km edge) groups nearby endpoints for log analysis.
	H3ResolutionDistrict = 7
)

// LatLngToCell converts a coordinate to an H3 cell index at the given resolution.
// Returns 0 when the coordinate cannot be indexed.
func LatLngToCell(c geoutil.Coordinate, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(c.Latitude, c.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// CellFor returns the street-level H3 cell for a coordinate as a hex string.
func CellFor(c geoutil.Coordinate) string {
	cell := LatLngToCell(c, H3ResolutionStreet)
	if cell == 0 {
		return ""
	}
	return cell.String()
}

// DistrictFor returns the district-level H3 cell for a coordinate.
func DistrictFor(c geoutil.Coordinate) string {
	cell := LatLngToCell(c, H3ResolutionDistrict)
	if cell == 0 {
		return ""
	}
	return cell.String()
}

// CellDistance returns the grid distance between the street cells of two
// coordinates, or -1 if it cannot be computed (for example across faces).
func CellDistance(a, b geoutil.Coordinate) int {
	ca := LatLngToCell(a, H3ResolutionStreet)
	cb := LatLngToCell(b, H3ResolutionStreet)
	if ca == 0 || cb == 0 {
		return -1
	}
	dist, err := ca.GridDistance(cb)
	if err != nil {
		return -1
	}
	return dist
}
