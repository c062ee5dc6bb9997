// README: Pool matching service ranks compatible existing rides for a new request.
package pool

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"shareride/internal/config"
	"shareride/internal/geo"
	"shareride/internal/maps"
	"shareride/internal/metrics"
)

// evalWorkers bounds the concurrent fan-out toward the routing provider.
const evalWorkers = 8

// RouteEstimator resolves a route between two points. Satisfied by
// *maps.Estimator; it must absorb provider failures into a fallback
// estimate rather than erroring.
type RouteEstimator interface {
	Route(ctx context.Context, origin, destination geo.Coordinate) maps.RouteEstimate
}

// Service is the pooling engine. Stateless and reentrant: every call works
// on caller-supplied snapshots and keeps nothing behind.
type Service struct {
	routes  RouteEstimator
	cfg     config.EngineConfig
	metrics *metrics.Collector
}

func NewService(routes RouteEstimator, cfg config.EngineConfig, m *metrics.Collector) *Service {
	return &Service{routes: routes, cfg: cfg, metrics: m}
}

// FindAvailablePools ranks the candidate rides that can absorb the request
// without violating detour, pickup, capacity, or eligibility limits.
// Results are sorted by score descending, stable on input order; an empty
// slice is a normal outcome. The only error condition is a malformed
// request; a malformed candidate snapshot is skipped so one bad stored
// ride cannot empty every searcher's results.
//
// Results are advisory: the candidate set is a snapshot, so a competing
// join may fill the last seat before the caller commits. Capacity must be
// re-checked at commit time by the ride lifecycle owner.
func (s *Service) FindAvailablePools(ctx context.Context, req RideRequest, rides []ExistingRide) ([]Candidate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	// Candidates are independent; evaluate them concurrently with a
	// bounded number of in-flight provider calls. Results keep their
	// input slot so ties preserve input order.
	results := make([]*Candidate, len(rides))
	sem := make(chan struct{}, evalWorkers)
	var wg sync.WaitGroup
	for i := range rides {
		if err := rides[i].Validate(); err != nil {
			log.Printf("[POOL] skipping candidate %s: %v", rides[i].RideID, err)
			continue
		}
		if !s.eligible(req, rides[i]) {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.evaluate(ctx, req, rides[i])
		}(i)
	}
	wg.Wait()

	out := make([]Candidate, 0, len(rides))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if s.metrics != nil {
		s.metrics.PoolsEvaluated.Add(float64(len(rides)))
		s.metrics.PoolsMatched.Add(float64(len(out)))
		s.metrics.MatchDuration.Observe(time.Since(start).Seconds())
	}
	return out, nil
}

// eligible applies the cheap pre-geometry filters: pooling flags, seat
// capacity, and female-only matching in both directions.
func (s *Service) eligible(req RideRequest, ride ExistingRide) bool {
	if !req.PoolingEnabled || !ride.PoolingEnabled {
		return false
	}
	if len(ride.Passengers) >= s.cfg.MaxPoolSize-1 {
		return false
	}
	if req.FemaleOnly && ride.RiderGender != GenderFemale {
		return false
	}
	if ride.FemaleOnly && req.RiderGender != GenderFemale {
		return false
	}
	return true
}

// evaluate runs the geometric pipeline for one candidate. A nil return is
// an incompatible route, which is a normal negative result, not an error.
func (s *Service) evaluate(ctx context.Context, req RideRequest, ride ExistingRide) *Candidate {
	solo := s.routes.Route(ctx, ride.Pickup.Coordinate, ride.Destination.Coordinate)

	order := sequenceWaypoints(ride, req)
	if order == nil {
		return nil
	}
	combinedDist, combinedDur := combinedRouteEstimate(order, maps.FallbackMinPerKm)

	m := routeMetrics{
		SoloDistanceKm:      solo.DistanceKm,
		SoloDurationMin:     solo.DurationMin,
		CombinedDistanceKm:  combinedDist,
		CombinedDurationMin: combinedDur,
		PickupDistanceKm:    geo.HaversineKm(ride.Pickup.Coordinate, req.Pickup.Coordinate),
	}
	compatible, score := scoreCompatibility(s.cfg, m)
	if !compatible {
		return nil
	}

	dd := m.detourDistanceKm()
	return &Candidate{
		CompatibilityResult: CompatibilityResult{
			Compatible:       true,
			Score:            score,
			DetourDistanceKm: dd,
			DetourTimeMin:    m.detourTimeMin(),
			PickupDistanceKm: m.PickupDistanceKm,
			FareShare:        splitFare(req.EstimatedFare, dd),
			Savings:          poolSavings(req.EstimatedFare, ride.EstimatedFare),
			RouteSummary:     routeSummary(order),
		},
		RideID: ride.RideID,
		Driver: ride.Driver,
	}
}

func routeSummary(order []geo.NamedPoint) string {
	names := make([]string, len(order))
	for i, p := range order {
		names[i] = p.Name
	}
	return strings.Join(names, " -> ")
}
