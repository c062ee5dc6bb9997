package pool

import "shareride/internal/geo"

const (
	// nearGapKm is the pickup/drop proximity under which two trips are
	// treated as sharing a neighbourhood.
	nearGapKm = 2.0
	// detourSlackKm bounds the extra straight-line distance accepted when
	// routing the existing trip through the new pickup.
	detourSlackKm = 1.0
)

// sequenceWaypoints orders the four pickup/drop points of an existing trip
// and a new request, or returns nil when no feasible ordering exists.
//
// This is a two-branch heuristic, not a search over all orderings of the
// four points, so it does not guarantee the minimal-distance sequence. An
// exhaustive pass over the orderings that keep each pickup before its own
// drop would be a drop-in replacement here.
func sequenceWaypoints(existing ExistingRide, req RideRequest) []geo.NamedPoint {
	pickupGap := geo.HaversineKm(existing.Pickup.Coordinate, req.Pickup.Coordinate)

	if pickupGap < nearGapKm {
		dropGap := geo.HaversineKm(existing.Destination.Coordinate, req.Destination.Coordinate)
		if dropGap < nearGapKm {
			return []geo.NamedPoint{existing.Pickup, req.Pickup, existing.Destination, req.Destination}
		}
		// Destinations diverge: drop the new rider first.
		return []geo.NamedPoint{existing.Pickup, req.Pickup, req.Destination, existing.Destination}
	}

	// Pickups far apart: accept only if routing through the new pickup
	// barely stretches the existing trip.
	direct := geo.HaversineKm(existing.Pickup.Coordinate, existing.Destination.Coordinate)
	detour := pickupGap + geo.HaversineKm(req.Pickup.Coordinate, existing.Destination.Coordinate)
	if detour-direct < detourSlackKm {
		return []geo.NamedPoint{existing.Pickup, req.Pickup, existing.Destination, req.Destination}
	}
	return nil
}

// combinedRouteEstimate sums the consecutive-waypoint distances of an
// ordering and derives a duration from the fallback speed model.
func combinedRouteEstimate(order []geo.NamedPoint, minPerKm float64) (distanceKm, durationMin float64) {
	for i := 1; i < len(order); i++ {
		distanceKm += geo.HaversineKm(order[i-1].Coordinate, order[i].Coordinate)
	}
	return distanceKm, distanceKm * minPerKm
}
