package geo

import (
	"testing"

	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/stretchr/testify/assert"
)

func TestCellFor(t *testing.T) {
	zocalo := geoutil.Coordinate{Longitude: -99.1332, Latitude: 19.4326}

	cell := CellFor(zocalo)
	assert.Len(t, cell, 15)
	assert.Equal(t, cell, CellFor(zocalo))
	assert.NotEqual(t, cell, DistrictFor(zocalo))
}

func TestCellDistance(t *testing.T) {
	a := geoutil.Coordinate{Longitude: -99.1332, Latitude: 19.4326}
	b := geoutil.Coordinate{Longitude: -99.1269, Latitude: 19.4284}

	assert.Equal(t, 0, CellDistance(a, a))
	d := CellDistance(a, b)
	assert.Greater(t, d, 0)
	assert.Equal(t, d, CellDistance(b, a))
}
