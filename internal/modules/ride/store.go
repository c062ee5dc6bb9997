// README: Ride store backed by PostgreSQL.
package ride

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shareride/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO rides (
            id, rider_id, driver_id, status, status_version,
            pickup_lat, pickup_lng, pickup_name,
            dropoff_lat, dropoff_lng, dropoff_name,
            departure_time, estimated_fare, currency,
            pooling_enabled, female_only, rider_gender, passenger_count,
            created_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8,
            $9, $10, $11,
            $12, $13, $14,
            $15, $16, $17, $18,
            $19
        )`,
		string(r.ID),
		string(r.RiderID),
		toStringPtr(r.DriverID),
		string(r.Status),
		r.StatusVersion,
		r.Pickup.Lat, r.Pickup.Lng, r.Pickup.Name,
		r.Dropoff.Lat, r.Dropoff.Lng, r.Dropoff.Name,
		r.DepartureTime,
		r.EstimatedFare.Amount,
		r.EstimatedFare.Currency,
		r.PoolingEnabled, r.FemaleOnly, r.RiderGender, r.PassengerCount,
		r.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, rider_id, driver_id, status, status_version,
               pickup_lat, pickup_lng, pickup_name,
               dropoff_lat, dropoff_lng, dropoff_name,
               departure_time, estimated_fare, currency,
               pooling_enabled, female_only, rider_gender, passenger_count,
               created_at, assigned_at, started_at, completed_at, cancelled_at, cancellation_reason
        FROM rides
        WHERE id = $1`, string(id),
	)

	r, err := scanRide(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadPassengers(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListPoolable returns open pooling-enabled rides with their passengers.
func (s *Store) ListPoolable(ctx context.Context) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, rider_id, driver_id, status, status_version,
               pickup_lat, pickup_lng, pickup_name,
               dropoff_lat, dropoff_lng, dropoff_name,
               departure_time, estimated_fare, currency,
               pooling_enabled, female_only, rider_gender, passenger_count,
               created_at, assigned_at, started_at, completed_at, cancelled_at, cancellation_reason
        FROM rides
        WHERE pooling_enabled = TRUE
          AND status IN ('pending', 'driver_assigned', 'in_progress')
        ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range rides {
		if err := s.loadPassengers(ctx, &rides[i]); err != nil {
			return nil, err
		}
	}
	return rides, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE rides
        SET status = $1,
            status_version = status_version + 1,
            driver_id = COALESCE($2, driver_id),
            cancellation_reason = COALESCE($3, cancellation_reason),
            assigned_at = CASE WHEN $1 = 'driver_assigned' THEN NOW() ELSE assigned_at END,
            started_at = CASE WHEN $1 = 'in_progress' THEN NOW() ELSE started_at END,
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
        WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(to),
		toStringPtr(driverID),
		reason,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO ride_state_events (
            ride_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RideID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) CreateJoin(ctx context.Context, j *JoinRequest) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO ride_join_requests (
            id, ride_id, rider_id, rider_name, status, fare_share, currency, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(j.ID),
		string(j.RideID),
		string(j.RiderID),
		j.RiderName,
		string(j.Status),
		j.FareShare.Amount,
		j.FareShare.Currency,
		j.CreatedAt,
	)
	return err
}

func (s *Store) GetJoin(ctx context.Context, id types.ID) (*JoinRequest, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, ride_id, rider_id, rider_name, status, fare_share, currency, created_at, resolved_at
        FROM ride_join_requests
        WHERE id = $1`, string(id),
	)
	var j JoinRequest
	var resolvedAt sql.NullTime
	err := row.Scan(&j.ID, &j.RideID, &j.RiderID, &j.RiderName, &j.Status,
		&j.FareShare.Amount, &j.FareShare.Currency, &j.CreatedAt, &resolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	j.ResolvedAt = toTimePtr(resolvedAt)
	return &j, nil
}

// AcceptJoin resolves a pending join and seats the rider inside one
// transaction. The ride row is locked so the capacity count cannot race
// with a competing accept.
func (s *Store) AcceptJoin(ctx context.Context, joinID types.ID, maxPoolSize int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var j JoinRequest
	err = tx.QueryRow(ctx, `
        SELECT id, ride_id, rider_id, rider_name, status, fare_share, currency
        FROM ride_join_requests
        WHERE id = $1
        FOR UPDATE`, string(joinID),
	).Scan(&j.ID, &j.RideID, &j.RiderID, &j.RiderName, &j.Status, &j.FareShare.Amount, &j.FareShare.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if j.Status != JoinPending {
		return ErrInvalidState
	}

	var rideStatus string
	if err := tx.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1 FOR UPDATE`, string(j.RideID)).Scan(&rideStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if rideStatus == string(StatusCompleted) || rideStatus == string(StatusCancelled) || rideStatus == string(StatusNoDrivers) {
		return ErrInvalidState
	}

	var seated int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ride_pool_passengers WHERE ride_id = $1`, string(j.RideID)).Scan(&seated); err != nil {
		return err
	}
	if seated >= maxPoolSize-1 {
		return ErrPoolFull
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
        INSERT INTO ride_pool_passengers (ride_id, rider_id, rider_name, fare_share, currency, joined_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		string(j.RideID), string(j.RiderID), j.RiderName, j.FareShare.Amount, j.FareShare.Currency, now,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
        UPDATE ride_join_requests SET status = 'accepted', resolved_at = $1 WHERE id = $2`,
		now, string(joinID),
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) RejectJoin(ctx context.Context, joinID types.ID) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE ride_join_requests
        SET status = 'rejected', resolved_at = NOW()
        WHERE id = $1 AND status = 'pending'`, string(joinID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrInvalidState
	}
	return nil
}

func (s *Store) loadPassengers(ctx context.Context, r *Ride) error {
	rows, err := s.db.Query(ctx, `
        SELECT rider_id, rider_name, fare_share, currency, joined_at
        FROM ride_pool_passengers
        WHERE ride_id = $1
        ORDER BY joined_at`, string(r.ID),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PoolPassenger
		if err := rows.Scan(&p.RiderID, &p.Name, &p.FareShare.Amount, &p.FareShare.Currency, &p.JoinedAt); err != nil {
			return err
		}
		r.Passengers = append(r.Passengers, p)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*Ride, error) {
	var r Ride
	var driverID sql.NullString
	var assignedAt, startedAt, completedAt, cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := row.Scan(
		&r.ID, &r.RiderID, &driverID, &r.Status, &r.StatusVersion,
		&r.Pickup.Lat, &r.Pickup.Lng, &r.Pickup.Name,
		&r.Dropoff.Lat, &r.Dropoff.Lng, &r.Dropoff.Name,
		&r.DepartureTime, &r.EstimatedFare.Amount, &r.EstimatedFare.Currency,
		&r.PoolingEnabled, &r.FemaleOnly, &r.RiderGender, &r.PassengerCount,
		&r.CreatedAt, &assignedAt, &startedAt, &completedAt, &cancelledAt, &cancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		d := types.ID(driverID.String)
		r.DriverID = &d
	}
	r.AssignedAt = toTimePtr(assignedAt)
	r.StartedAt = toTimePtr(startedAt)
	r.CompletedAt = toTimePtr(completedAt)
	r.CancelledAt = toTimePtr(cancelledAt)
	if cancelReason.Valid {
		r.CancelReason = &cancelReason.String
	}
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
