// README: Ride aggregate, pool-join records, and status definitions.
package ride

import (
	"time"

	"shareride/internal/geo"
	"shareride/internal/types"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusDriverAssigned Status = "driver_assigned"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusNoDrivers      Status = "no_drivers_available"
	StatusCancelled      Status = "cancelled"
)

type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinAccepted JoinStatus = "accepted"
	JoinRejected JoinStatus = "rejected"
)

type Ride struct {
	ID             types.ID
	RiderID        types.ID
	DriverID       *types.ID
	Status         Status
	StatusVersion  int
	Pickup         geo.NamedPoint
	Dropoff        geo.NamedPoint
	DepartureTime  string
	EstimatedFare  types.Money
	PoolingEnabled bool
	FemaleOnly     bool
	RiderGender    string
	PassengerCount int
	Passengers     []PoolPassenger
	CreatedAt      time.Time
	AssignedAt     *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   *string
}

// PoolPassenger is a rider who joined this ride's pool, in join order.
type PoolPassenger struct {
	RiderID   types.ID
	Name      string
	FareShare types.Money
	JoinedAt  time.Time
}

// JoinRequest tracks one rider's request to join an existing pool.
type JoinRequest struct {
	ID         types.ID
	RideID     types.ID
	RiderID    types.ID
	RiderName  string
	Status     JoinStatus
	FareShare  types.Money
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

type Event struct {
	ID         int64
	RideID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the ride state flow as code. Completed,
// cancelled and no-drivers are terminal; cancel is reachable from every
// non-terminal state.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusDriverAssigned, StatusNoDrivers, StatusCancelled},
	StatusDriverAssigned: {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
