// README: Route estimation via Google Directions with a haversine fallback.
package maps

import (
	"context"
	"fmt"
	"log"
	"time"

	"googlemaps.github.io/maps"

	"shareride/internal/geo"
	"shareride/internal/metrics"
)

// Source identifies where a route estimate came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// FallbackMinPerKm converts a straight-line distance into an estimated
// driving duration when the provider is unavailable. Best-effort, not a
// contract.
const FallbackMinPerKm = 2.0

// RouteEstimate is a distance/duration pair for a single leg.
type RouteEstimate struct {
	DistanceKm  float64
	DurationMin float64
	Source      Source
}

// directionsAPI is the slice of the Google Maps client used here. Satisfied
// by *maps.Client; stubbed in tests.
type directionsAPI interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// Estimator resolves distance and duration between two coordinates. It
// prefers the Google Directions API and silently degrades to a local
// haversine estimate on any provider failure; Route never returns an error.
type Estimator struct {
	client  directionsAPI
	timeout time.Duration
	metrics *metrics.Collector
}

// NewEstimator creates an Estimator. An empty apiKey is not an error: the
// estimator then serves fallback estimates only.
func NewEstimator(apiKey string, timeout time.Duration, m *metrics.Collector) (*Estimator, error) {
	e := &Estimator{timeout: timeout, metrics: m}
	if apiKey == "" {
		log.Printf("[ROUTES] no maps API key configured, using fallback estimates")
		return e, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	e.client = client
	return e, nil
}

// Route returns the best available estimate for driving from origin to
// destination, departing now.
func (e *Estimator) Route(ctx context.Context, origin, destination geo.Coordinate) RouteEstimate {
	if e.client == nil {
		return e.fallback(origin, destination)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if e.metrics != nil {
		e.metrics.ProviderCalls.Inc()
	}

	r := &maps.DirectionsRequest{
		Origin:        fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination:   fmt.Sprintf("%f,%f", destination.Lat, destination.Lng),
		Mode:          maps.TravelModeDriving,
		DepartureTime: "now",
		TrafficModel:  maps.TrafficModelBestGuess,
	}

	routes, _, err := e.client.Directions(ctx, r)
	if err != nil {
		log.Printf("[ROUTES] directions error, falling back: %v", err)
		return e.fallback(origin, destination)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		log.Printf("[ROUTES] no route found, falling back")
		return e.fallback(origin, destination)
	}

	leg := routes[0].Legs[0]
	duration := leg.DurationInTraffic
	if duration == 0 {
		duration = leg.Duration
	}
	return RouteEstimate{
		DistanceKm:  float64(leg.Distance.Meters) / 1000.0,
		DurationMin: duration.Minutes(),
		Source:      SourceProvider,
	}
}

func (e *Estimator) fallback(origin, destination geo.Coordinate) RouteEstimate {
	if e.metrics != nil {
		e.metrics.ProviderFallbacks.Inc()
	}
	d := geo.HaversineKm(origin, destination)
	return RouteEstimate{
		DistanceKm:  d,
		DurationMin: d * FallbackMinPerKm,
		Source:      SourceFallback,
	}
}
