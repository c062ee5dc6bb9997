package pool

import "math"

const (
	// poolFareFactor is the shared-ride multiplier on the solo fare.
	poolFareFactor = 0.75
	// detourChargePerKm compensates the pool for the extra distance the
	// join adds.
	detourChargePerKm = 10.0
	// minFareFactor floors the share: a rider never pays less than 60% of
	// their solo fare.
	minFareFactor = 0.6
	// savingsRate is the advertised pooling discount.
	savingsRate = 0.25
)

// splitFare computes the discounted fare for a rider joining a pool.
//
// The floor is applied after the discount, so on long detours the floor can
// exceed the discounted value; that precedence is kept as-is for parity
// with the pricing rules the product shipped with.
func splitFare(baseFare int64, detourDistanceKm float64) int64 {
	share := math.Round(float64(baseFare)*poolFareFactor + detourDistanceKm*detourChargePerKm)
	if floor := float64(baseFare) * minFareFactor; share < floor {
		share = floor
	}
	return int64(math.Round(share))
}

// poolSavings is the savings figure shown to the rider: a quarter of the
// average of the two solo fares.
func poolSavings(newFare, existingFare int64) int64 {
	return int64(math.Round(float64(newFare+existingFare) / 2 * savingsRate))
}
