package maps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"cargoflow/internal/types"
)

var (
	// ErrInvalidCoordinates means an input point is outside the lat/lng domain.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrRouteUnavailable means the directions provider failed or returned a
	// response outside its contract. Callers must not guess a distance.
	ErrRouteUnavailable = errors.New("route unavailable")
)

// Route is the narrow slice of the provider response the rest of the
// system is allowed to depend on.
type Route struct {
	DistanceMeters float64       `json:"distance_meters"`
	Geometry       []types.Point `json:"geometry"`
}

// RouteService wraps the external directions provider. It performs one
// outbound call per invocation and never retries or caches; both belong
// to the caller.
type RouteService struct {
	client  *maps.Client
	timeout time.Duration
}

// NewRouteService creates a RouteService with the given provider API key.
func NewRouteService(apiKey string, timeout time.Duration) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newRouteService(client, timeout), nil
}

// NewRouteServiceWithHTTPClient is used by tests to intercept transport.
func NewRouteServiceWithHTTPClient(apiKey string, timeout time.Duration, hc *http.Client) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey), maps.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newRouteService(client, timeout), nil
}

func newRouteService(client *maps.Client, timeout time.Duration) *RouteService {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &RouteService{client: client, timeout: timeout}
}

// ComputeRoute resolves the driving route between two points and returns
// its distance and geometry. The call is time-bounded so one slow
// upstream request cannot stall dispatch for other callers.
func (s *RouteService) ComputeRoute(ctx context.Context, origin, destination types.Point) (Route, error) {
	if !origin.Valid() || !destination.Valid() {
		return Route{}, ErrInvalidCoordinates
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", destination.Lat, destination.Lng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, fmt.Errorf("%w: provider returned no route", ErrRouteUnavailable)
	}

	leg := routes[0].Legs[0]
	path, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return Route{}, fmt.Errorf("%w: malformed geometry", ErrRouteUnavailable)
	}

	geometry := make([]types.Point, len(path))
	for i, p := range path {
		geometry[i] = types.Point{Lat: p.Lat, Lng: p.Lng}
	}
	return Route{
		DistanceMeters: float64(leg.Distance.Meters),
		Geometry:       geometry,
	}, nil
}
