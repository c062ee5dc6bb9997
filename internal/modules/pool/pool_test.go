// README: Pooling engine tests covering sequencing, scoring, fares and matching.
package pool

import (
	"context"
	"errors"
	"math"
	"testing"

	"shareride/internal/config"
	"shareride/internal/geo"
	"shareride/internal/maps"
	"shareride/internal/types"
)

// stubRoutes mirrors the estimator's fallback model so combined and solo
// durations share a speed assumption.
type stubRoutes struct{}

func (stubRoutes) Route(_ context.Context, o, d geo.Coordinate) maps.RouteEstimate {
	dist := geo.HaversineKm(o, d)
	return maps.RouteEstimate{DistanceKm: dist, DurationMin: dist * maps.FallbackMinPerKm, Source: maps.SourceFallback}
}

func newTestService() *Service {
	return NewService(stubRoutes{}, config.Defaults(), nil)
}

func point(name string, lat, lng float64) geo.NamedPoint {
	return geo.NamedPoint{Coordinate: geo.Coordinate{Lat: lat, Lng: lng}, Name: name}
}

func baseRequest() RideRequest {
	return RideRequest{
		RiderID:        types.ID("rider-1"),
		Pickup:         point("Jayanagar", 12.903, 77.582),
		Destination:    point("Indiranagar", 12.953, 77.642),
		DepartureTime:  "now",
		EstimatedFare:  300,
		PoolingEnabled: true,
		RiderGender:    GenderMale,
		PassengerCount: 1,
	}
}

func baseRide() ExistingRide {
	return ExistingRide{
		RideID:         types.ID("ride-1"),
		Pickup:         point("Basavanagudi", 12.90, 77.58),
		Destination:    point("Domlur", 12.95, 77.64),
		EstimatedFare:  280,
		Driver:         DriverSummary{ID: "drv-1", Name: "Asha", Rating: 4.7, Vehicle: "KA-01 Swift"},
		PoolingEnabled: true,
		RiderGender:    GenderFemale,
	}
}

// ---------------------------------------------------------------------------
// Waypoint sequencing
// ---------------------------------------------------------------------------

func TestSequenceWaypoints_NearPickupsNearDrops(t *testing.T) {
	order := sequenceWaypoints(baseRide(), baseRequest())
	if order == nil {
		t.Fatal("expected a feasible ordering")
	}
	want := []string{"Basavanagudi", "Jayanagar", "Domlur", "Indiranagar"}
	assertOrder(t, order, want)
}

func TestSequenceWaypoints_NearPickupsFarDrops(t *testing.T) {
	req := baseRequest()
	req.Destination = point("Koramangala", 12.935, 77.615) // ~3km from existing drop
	order := sequenceWaypoints(baseRide(), req)
	if order == nil {
		t.Fatal("expected a feasible ordering")
	}
	// New rider dropped first when destinations diverge.
	want := []string{"Basavanagudi", "Jayanagar", "Koramangala", "Domlur"}
	assertOrder(t, order, want)
}

func TestSequenceWaypoints_FarPickupOnTheWay(t *testing.T) {
	req := baseRequest()
	// Roughly halfway along the existing trip, just over 2km from its pickup.
	req.Pickup = point("Midway", 12.925, 77.610)
	order := sequenceWaypoints(baseRide(), req)
	if order == nil {
		t.Fatal("expected a feasible ordering for an on-the-way pickup")
	}
	want := []string{"Basavanagudi", "Midway", "Domlur", "Indiranagar"}
	assertOrder(t, order, want)
}

func TestSequenceWaypoints_FarPickupOffRoute(t *testing.T) {
	req := baseRequest()
	req.Pickup = point("FarNorth", 13.08, 77.58) // ~20km off the route
	if order := sequenceWaypoints(baseRide(), req); order != nil {
		t.Fatalf("expected no feasible ordering, got %v", order)
	}
}

func assertOrder(t *testing.T, order []geo.NamedPoint, want []string) {
	t.Helper()
	if len(order) != len(want) {
		t.Fatalf("ordering has %d points, want %d", len(order), len(want))
	}
	for i, name := range want {
		if order[i].Name != name {
			t.Errorf("order[%d] = %s, want %s", i, order[i].Name, name)
		}
	}
}

// ---------------------------------------------------------------------------
// Scoring
// ---------------------------------------------------------------------------

func TestScoreCompatibility_IdenticalTrips(t *testing.T) {
	cfg := config.Defaults()
	m := routeMetrics{
		SoloDistanceKm: 8.4, SoloDurationMin: 16.8,
		CombinedDistanceKm: 8.4, CombinedDurationMin: 16.8,
		PickupDistanceKm: 0,
	}
	ok, score := scoreCompatibility(cfg, m)
	if !ok {
		t.Fatal("identical trips must be compatible")
	}
	if score != 100 {
		t.Errorf("score = %d, want 100 (zero detour plus full efficiency bonus, clamped)", score)
	}
}

func TestScoreCompatibility_ThresholdViolations(t *testing.T) {
	cfg := config.Defaults()
	base := routeMetrics{
		SoloDistanceKm: 10, SoloDurationMin: 20,
		CombinedDistanceKm: 11, CombinedDurationMin: 22,
		PickupDistanceKm: 1,
	}

	tests := []struct {
		name   string
		mutate func(*routeMetrics)
	}{
		{"detour distance over limit", func(m *routeMetrics) { m.CombinedDistanceKm = m.SoloDistanceKm + 5.1 }},
		{"detour time over limit", func(m *routeMetrics) { m.CombinedDurationMin = m.SoloDurationMin + 15.1 }},
		{"pickup distance over limit", func(m *routeMetrics) { m.PickupDistanceKm = 3.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base
			tt.mutate(&m)
			if ok, _ := scoreCompatibility(cfg, m); ok {
				t.Error("expected incompatible")
			}
		})
	}

	if ok, _ := scoreCompatibility(cfg, base); !ok {
		t.Error("base metrics should be compatible")
	}
}

func TestScoreCompatibility_Clamped(t *testing.T) {
	cfg := config.Defaults()
	// Metrics at the limits minus the bonus drive the raw score below zero
	// only with extreme stretch; verify both clamps.
	worst := routeMetrics{
		SoloDistanceKm: 1, SoloDurationMin: 2,
		CombinedDistanceKm: 6, CombinedDurationMin: 17,
		PickupDistanceKm: 3,
	}
	if _, score := scoreCompatibility(cfg, worst); score < 0 || score > 100 {
		t.Errorf("score %d outside [0,100]", score)
	}
	best := routeMetrics{
		SoloDistanceKm: 10, SoloDurationMin: 20,
		CombinedDistanceKm: 10, CombinedDurationMin: 20,
		PickupDistanceKm: 0,
	}
	if _, score := scoreCompatibility(cfg, best); score != 100 {
		t.Errorf("score = %d, want clamp at 100", score)
	}
}

// ---------------------------------------------------------------------------
// Fare splitting
// ---------------------------------------------------------------------------

func TestSplitFare_Bounds(t *testing.T) {
	const base = 300
	for _, detour := range []float64{0, 0.5, 1, 2.5, 5} {
		share := splitFare(base, detour)
		if share < int64(math.Round(base*minFareFactor)) {
			t.Errorf("detour %.1f: share %d below 60%% floor", detour, share)
		}
		if share >= base {
			t.Errorf("detour %.1f: share %d not below solo fare", detour, share)
		}
	}
}

func TestSplitFare_FloorApplies(t *testing.T) {
	// 75% of 100 is 75, above the floor of 60; no floor effect.
	if got := splitFare(100, 0); got != 75 {
		t.Errorf("splitFare(100, 0) = %d, want 75", got)
	}
	// Detour charge dominates a tiny fare; literal formula keeps the sum.
	if got := splitFare(100, 3); got != 105 {
		t.Errorf("splitFare(100, 3) = %d, want 105", got)
	}
}

func TestPoolSavings(t *testing.T) {
	if got := poolSavings(300, 280); got != 73 {
		t.Errorf("poolSavings(300, 280) = %d, want 73", got)
	}
	if got := poolSavings(200, 200); got != 50 {
		t.Errorf("poolSavings(200, 200) = %d, want 50", got)
	}
}

// ---------------------------------------------------------------------------
// FindAvailablePools
// ---------------------------------------------------------------------------

func TestFindAvailablePools_ParallelTripsMatch(t *testing.T) {
	svc := newTestService()
	got, err := svc.FindAvailablePools(context.Background(), baseRequest(), []ExistingRide{baseRide()})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	if !c.Compatible {
		t.Error("candidate not marked compatible")
	}
	if c.Score < 80 {
		t.Errorf("score = %d, want >= 80 for near-parallel trips", c.Score)
	}
	if c.RideID != "ride-1" || c.Driver.ID != "drv-1" {
		t.Errorf("candidate identity wrong: %+v", c)
	}
	if c.FareShare <= 0 || c.Savings <= 0 {
		t.Errorf("fare fields not populated: share=%d savings=%d", c.FareShare, c.Savings)
	}
	if c.RouteSummary == "" {
		t.Error("route summary empty")
	}
}

func TestFindAvailablePools_IdenticalTripScores100(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	ride := baseRide()
	req.Pickup = ride.Pickup
	req.Destination = ride.Destination

	got, err := svc.FindAvailablePools(context.Background(), req, []ExistingRide{ride})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Score != 100 {
		t.Errorf("score = %d, want 100", got[0].Score)
	}
	if math.Abs(got[0].DetourDistanceKm) > 0.001 || math.Abs(got[0].DetourTimeMin) > 0.001 {
		t.Errorf("identical trips detour = (%f km, %f min), want ~0", got[0].DetourDistanceKm, got[0].DetourTimeMin)
	}
}

func TestFindAvailablePools_FarPickupExcluded(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	req.Pickup = point("FarNorth", 13.08, 77.58) // ~20km from the existing pickup

	got, err := svc.FindAvailablePools(context.Background(), req, []ExistingRide{baseRide()})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates for a 20km pickup gap, got %d", len(got))
	}
}

func TestFindAvailablePools_CapacityFilter(t *testing.T) {
	svc := newTestService()
	full := baseRide()
	full.Passengers = []Passenger{
		{RiderID: "p1"}, {RiderID: "p2"}, {RiderID: "p3"}, // MaxPoolSize-1 already aboard
	}
	got, err := svc.FindAvailablePools(context.Background(), baseRequest(), []ExistingRide{full})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 0 {
		t.Fatal("a ride at capacity must never be offered")
	}
}

func TestFindAvailablePools_FemaleOnlyBothDirections(t *testing.T) {
	svc := newTestService()

	// Request is female-only but the existing rider is male.
	req := baseRequest()
	req.FemaleOnly = true
	req.RiderGender = GenderFemale
	ride := baseRide()
	ride.RiderGender = GenderMale
	got, err := svc.FindAvailablePools(context.Background(), req, []ExistingRide{ride})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 0 {
		t.Error("female-only request matched a male-owned ride")
	}

	// Existing ride is female-only but the requester is male.
	req = baseRequest()
	req.RiderGender = GenderMale
	ride = baseRide()
	ride.FemaleOnly = true
	got, err = svc.FindAvailablePools(context.Background(), req, []ExistingRide{ride})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 0 {
		t.Error("male requester matched a female-only ride")
	}

	// Both female: geometric compatibility decides.
	req = baseRequest()
	req.FemaleOnly = true
	req.RiderGender = GenderFemale
	ride = baseRide()
	ride.FemaleOnly = true
	ride.RiderGender = GenderFemale
	got, err = svc.FindAvailablePools(context.Background(), req, []ExistingRide{ride})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 1 {
		t.Error("matching female-only pair was not offered")
	}
}

func TestFindAvailablePools_PoolingDisabled(t *testing.T) {
	svc := newTestService()

	req := baseRequest()
	req.PoolingEnabled = false
	if got, _ := svc.FindAvailablePools(context.Background(), req, []ExistingRide{baseRide()}); len(got) != 0 {
		t.Error("non-pooling request received candidates")
	}

	ride := baseRide()
	ride.PoolingEnabled = false
	if got, _ := svc.FindAvailablePools(context.Background(), baseRequest(), []ExistingRide{ride}); len(got) != 0 {
		t.Error("non-pooling ride was offered")
	}
}

func TestFindAvailablePools_SortedByScoreDescending(t *testing.T) {
	svc := newTestService()
	req := baseRequest()

	near := baseRide()
	near.RideID = "near"

	mid := baseRide()
	mid.RideID = "mid"
	mid.Pickup = point("MidPickup", 12.915, 77.592) // further from the request pickup

	dup := near
	dup.RideID = "near-dup" // identical geometry, later input slot

	got, err := svc.FindAvailablePools(context.Background(), req, []ExistingRide{mid, near, dup})
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Fatalf("output not sorted: score[%d]=%d < score[%d]=%d", i-1, got[i-1].Score, i, got[i].Score)
		}
	}
	// Equal scores keep input order.
	for i := 1; i < len(got); i++ {
		if got[i-1].Score == got[i].Score && got[i-1].RideID == "near-dup" && got[i].RideID == "near" {
			t.Error("stable sort violated for equal scores")
		}
	}
}

func TestFindAvailablePools_EmptyCandidatesIsNotError(t *testing.T) {
	svc := newTestService()
	got, err := svc.FindAvailablePools(context.Background(), baseRequest(), nil)
	if err != nil {
		t.Fatalf("FindAvailablePools: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d candidates from empty input", len(got))
	}
}

func TestFindAvailablePools_InvalidInput(t *testing.T) {
	svc := newTestService()

	bad := baseRequest()
	bad.Pickup.Lat = 91
	if _, err := svc.FindAvailablePools(context.Background(), bad, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("out-of-range pickup: err = %v, want ErrInvalidInput", err)
	}

	bad = baseRequest()
	bad.EstimatedFare = 0
	if _, err := svc.FindAvailablePools(context.Background(), bad, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero fare: err = %v, want ErrInvalidInput", err)
	}

	bad = baseRequest()
	bad.PassengerCount = 0
	if _, err := svc.FindAvailablePools(context.Background(), bad, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero passengers: err = %v, want ErrInvalidInput", err)
	}

	bad = baseRequest()
	bad.RiderGender = "unknown"
	if _, err := svc.FindAvailablePools(context.Background(), bad, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad gender: err = %v, want ErrInvalidInput", err)
	}

}

// A malformed stored candidate is skipped; it must not fail the batch or
// hide the valid matches next to it.
func TestFindAvailablePools_SkipsMalformedCandidate(t *testing.T) {
	svc := newTestService()

	badCoord := baseRide()
	badCoord.RideID = "ride-bad-coord"
	badCoord.Destination.Lng = math.NaN()

	badGender := baseRide()
	badGender.RideID = "ride-bad-gender"
	badGender.RiderGender = ""

	good := baseRide()

	got, err := svc.FindAvailablePools(context.Background(), baseRequest(), []ExistingRide{badCoord, badGender, good})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].RideID != good.RideID {
		t.Fatalf("wrong candidate survived: %s", got[0].RideID)
	}
}
