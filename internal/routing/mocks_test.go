package routing

import (
	"context"
	"sync/atomic"

	"github.com/JesusSantiago31/API-GPS/internal/geo"
	"github.com/JesusSantiago31/API-GPS/internal/maps"
	geoutil "github.com/JesusSantiago31/API-GPS/pkg/geo"
	"github.com/stretchr/testify/mock"
)

// ========================================
// MOCK: Geocoder
// ========================================

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*geo.GeocodingResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geo.GeocodingResult), args.Error(1)
}

// ========================================
// MOCK: RouteProvider
// ========================================

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetRoute(ctx context.Context, start, end geoutil.Coordinate, profile maps.TravelProfile) (*maps.Route, error) {
	args := m.Called(ctx, start, end, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*maps.Route), args.Error(1)
}

// countingProvider returns fixed routes and counts calls per profile.
type countingProvider struct {
	routes  map[maps.TravelProfile]*maps.Route
	errs    map[maps.TravelProfile]error
	driving int32
	walking int32
}

func (p *countingProvider) GetRoute(_ context.Context, _, _ geoutil.Coordinate, profile maps.TravelProfile) (*maps.Route, error) {
	if profile == maps.ProfileDriving {
		atomic.AddInt32(&p.driving, 1)
	} else {
		atomic.AddInt32(&p.walking, 1)
	}
	if err := p.errs[profile]; err != nil {
		return nil, err
	}
	if r := p.routes[profile]; r != nil {
		copied := *r
		return &copied, nil
	}
	return nil, maps.NewProviderError(profile, 404, maps.CodeNoRoute, "", nil)
}

func (p *countingProvider) calls() int32 {
	return atomic.LoadInt32(&p.driving) + atomic.LoadInt32(&p.walking)
}
