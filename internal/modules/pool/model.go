// README: Pooling engine snapshots and decision records.
package pool

import (
	"errors"
	"fmt"

	"shareride/internal/geo"
	"shareride/internal/types"
)

// ErrInvalidInput reports a malformed snapshot: bad coordinates, a
// non-positive fare, a passenger count below one, or an unknown gender.
// Validation runs before any geometry is computed.
var ErrInvalidInput = errors.New("invalid input")

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the closed set of gender values.
func (g Gender) Valid() bool {
	switch g {
	case GenderFemale, GenderMale, GenderOther:
		return true
	}
	return false
}

// RideRequest is an immutable snapshot of a new trip request being matched.
type RideRequest struct {
	RiderID        types.ID
	Pickup         geo.NamedPoint
	Destination    geo.NamedPoint
	DepartureTime  string
	EstimatedFare  int64 // currency minor units
	PoolingEnabled bool
	FemaleOnly     bool
	RiderGender    Gender
	PassengerCount int
}

// DriverSummary identifies the driver already serving an existing ride.
type DriverSummary struct {
	ID      types.ID
	Name    string
	Rating  float64
	Vehicle string
}

// Passenger is one rider already sharing an existing ride, in join order.
type Passenger struct {
	RiderID types.ID
	Name    string
}

// ExistingRide is an immutable snapshot of an in-progress poolable trip.
type ExistingRide struct {
	RideID         types.ID
	Pickup         geo.NamedPoint
	Destination    geo.NamedPoint
	EstimatedFare  int64
	Driver         DriverSummary
	Passengers     []Passenger
	PoolingEnabled bool
	FemaleOnly     bool
	RiderGender    Gender
}

// CompatibilityResult is the scored outcome of comparing one candidate ride
// against a request.
type CompatibilityResult struct {
	Compatible       bool
	Score            int // 0..100
	DetourDistanceKm float64
	DetourTimeMin    float64
	PickupDistanceKm float64
	FareShare        int64
	Savings          int64
	RouteSummary     string
}

// Candidate is an output projection of one compatible existing ride. Never
// mutated after creation.
type Candidate struct {
	CompatibilityResult
	RideID types.ID
	Driver DriverSummary
}

// Validate checks a request snapshot before matching.
func (r RideRequest) Validate() error {
	if err := r.Pickup.Coordinate.Validate(); err != nil {
		return fmt.Errorf("%w: pickup: %v", ErrInvalidInput, err)
	}
	if err := r.Destination.Coordinate.Validate(); err != nil {
		return fmt.Errorf("%w: destination: %v", ErrInvalidInput, err)
	}
	if r.EstimatedFare <= 0 {
		return fmt.Errorf("%w: estimated fare must be positive, got %d", ErrInvalidInput, r.EstimatedFare)
	}
	if r.PassengerCount < 1 {
		return fmt.Errorf("%w: passenger count must be at least 1, got %d", ErrInvalidInput, r.PassengerCount)
	}
	if !r.RiderGender.Valid() {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, r.RiderGender)
	}
	return nil
}

// Validate checks a candidate snapshot before matching.
func (e ExistingRide) Validate() error {
	if err := e.Pickup.Coordinate.Validate(); err != nil {
		return fmt.Errorf("%w: pickup: %v", ErrInvalidInput, err)
	}
	if err := e.Destination.Coordinate.Validate(); err != nil {
		return fmt.Errorf("%w: destination: %v", ErrInvalidInput, err)
	}
	if e.EstimatedFare <= 0 {
		return fmt.Errorf("%w: estimated fare must be positive, got %d", ErrInvalidInput, e.EstimatedFare)
	}
	if !e.RiderGender.Valid() {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, e.RiderGender)
	}
	return nil
}
