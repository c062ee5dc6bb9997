// README: Ride lifecycle service implements state transitions and pool joins.
package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shareride/internal/geo"
	"shareride/internal/modules/pool"
	"shareride/internal/types"
)

var (
	ErrNotFound     = errors.New("ride not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("ride state conflict")
	ErrPoolFull     = errors.New("pool is full")
	ErrBadRequest   = errors.New("bad request")
)

// Storage is the persistence boundary for rides and pool joins. The pgx
// Store implements it; tests may substitute an in-memory version.
type Storage interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	ListPoolable(ctx context.Context) ([]Ride, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID, reason *string) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error

	CreateJoin(ctx context.Context, j *JoinRequest) error
	GetJoin(ctx context.Context, id types.ID) (*JoinRequest, error)
	// AcceptJoin re-checks seat capacity and resolves the join inside one
	// transaction; it returns ErrPoolFull when a competing join took the
	// last seat after the advisory match.
	AcceptJoin(ctx context.Context, joinID types.ID, maxPoolSize int) error
	RejectJoin(ctx context.Context, joinID types.ID) error
}

type Service struct {
	store       Storage
	maxPoolSize int
}

func NewService(store Storage, maxPoolSize int) *Service {
	return &Service{store: store, maxPoolSize: maxPoolSize}
}

type CreateCommand struct {
	RiderID        types.ID
	Pickup         geo.NamedPoint
	Dropoff        geo.NamedPoint
	DepartureTime  string
	EstimatedFare  types.Money
	PoolingEnabled bool
	FemaleOnly     bool
	RiderGender    string
	PassengerCount int
}

type AssignCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type StartCommand struct {
	RideID types.ID
}

type CompleteCommand struct {
	RideID types.ID
}

type CancelCommand struct {
	RideID    types.ID
	ActorType string
	Reason    string
}

type JoinCommand struct {
	RideID    types.ID
	RiderID   types.ID
	RiderName string
	FareShare types.Money
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.RiderID == "" {
		return "", ErrBadRequest
	}
	if err := cmd.Pickup.Coordinate.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := cmd.Dropoff.Coordinate.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if cmd.EstimatedFare.Amount <= 0 || cmd.PassengerCount < 1 {
		return "", ErrBadRequest
	}
	// Reject unknown gender values here; a stored ride with a malformed
	// gender would be unmatchable and undispatchable later.
	if !pool.Gender(cmd.RiderGender).Valid() {
		return "", fmt.Errorf("%w: unknown gender %q", ErrBadRequest, cmd.RiderGender)
	}

	id := types.ID(uuid.NewString())
	now := time.Now()
	r := &Ride{
		ID:             id,
		RiderID:        cmd.RiderID,
		Status:         StatusPending,
		StatusVersion:  0,
		Pickup:         cmd.Pickup,
		Dropoff:        cmd.Dropoff,
		DepartureTime:  cmd.DepartureTime,
		EstimatedFare:  cmd.EstimatedFare,
		PoolingEnabled: cmd.PoolingEnabled,
		FemaleOnly:     cmd.FemaleOnly,
		RiderGender:    cmd.RiderGender,
		PassengerCount: cmd.PassengerCount,
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return "", err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		RideID:     id,
		FromStatus: "",
		ToStatus:   StatusPending,
		ActorType:  "rider",
		ActorID:    &cmd.RiderID,
		CreatedAt:  now,
	})
	return id, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	return s.store.Get(ctx, id)
}

// ListPoolable returns the open rides eligible to host a pool join.
func (s *Service) ListPoolable(ctx context.Context) ([]Ride, error) {
	return s.store.ListPoolable(ctx)
}

func (s *Service) AssignDriver(ctx context.Context, cmd AssignCommand) error {
	return s.transition(ctx, cmd.RideID, StatusDriverAssigned, "system", &cmd.DriverID, nil)
}

// MarkNoDrivers resolves a pending ride that dispatch could not serve.
func (s *Service) MarkNoDrivers(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusNoDrivers, "system", nil, nil)
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) error {
	return s.transition(ctx, cmd.RideID, StatusInProgress, "driver", nil, nil)
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) error {
	return s.transition(ctx, cmd.RideID, StatusCompleted, "driver", nil, nil)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	var reason *string
	if cmd.Reason != "" {
		reason = &cmd.Reason
	}
	return s.transition(ctx, cmd.RideID, StatusCancelled, cmd.ActorType, nil, reason)
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status, actorType string, driverID *types.ID, reason *string) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, to) {
		return ErrInvalidState
	}
	if driverID == nil {
		driverID = r.DriverID
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, to, r.StatusVersion, driverID, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	actorID := driverID
	if actorType == "rider" {
		actorID = &r.RiderID
	}
	_ = s.store.AppendEvent(ctx, &Event{
		RideID:     r.ID,
		FromStatus: r.Status,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	return nil
}

// RequestJoin records a rider's request to join a pool. The advisory
// compatibility result has already been computed by the matching engine;
// the authoritative seat check happens at accept time.
func (s *Service) RequestJoin(ctx context.Context, cmd JoinCommand) (types.ID, error) {
	if cmd.RiderID == "" {
		return "", ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return "", err
	}
	if !r.PoolingEnabled {
		return "", ErrBadRequest
	}

	j := &JoinRequest{
		ID:        types.ID(uuid.NewString()),
		RideID:    cmd.RideID,
		RiderID:   cmd.RiderID,
		RiderName: cmd.RiderName,
		Status:    JoinPending,
		FareShare: cmd.FareShare,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateJoin(ctx, j); err != nil {
		return "", err
	}
	return j.ID, nil
}

// AcceptJoin commits a pending join. Capacity is re-checked atomically in
// the store: a competing join may have filled the last seat since the
// match was computed.
func (s *Service) AcceptJoin(ctx context.Context, joinID types.ID) error {
	return s.store.AcceptJoin(ctx, joinID, s.maxPoolSize)
}

func (s *Service) RejectJoin(ctx context.Context, joinID types.ID) error {
	return s.store.RejectJoin(ctx, joinID)
}

func (s *Service) GetJoin(ctx context.Context, id types.ID) (*JoinRequest, error) {
	return s.store.GetJoin(ctx, id)
}
