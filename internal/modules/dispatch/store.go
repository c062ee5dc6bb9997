// README: Driver location store backed by Redis GEO and hashes.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shareride/internal/geo"
	"shareride/internal/types"
)

const (
	driverGeoKey    = "dispatch:drivers"
	driverKeyPrefix = "dispatch:driver:%s"
	// Driver records expire if no update arrives; a silent app is treated
	// as offline.
	driverTTL = 24 * time.Hour
)

// Store owns the shared driver-location state. All access goes through the
// Redis client, so concurrent updates and reads never race in-process.
type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// Upsert writes a driver's position and availability snapshot.
func (s *Store) Upsert(ctx context.Context, d Driver) error {
	pipe := s.redis.Pipeline()
	pipe.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(d.ID),
		Longitude: d.Location.Lng,
		Latitude:  d.Location.Lat,
	})
	fields := map[string]any{
		"name":    d.Name,
		"status":  string(d.Status),
		"rating":  d.Rating,
		"vehicle": d.Vehicle,
	}
	if d.CurrentRideID != nil {
		fields["current_ride"] = string(*d.CurrentRideID)
	} else {
		fields["current_ride"] = ""
	}
	key := driverKey(d.ID)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, driverTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove deletes a driver from the index, e.g. when they go offline.
func (s *Store) Remove(ctx context.Context, id types.ID) error {
	pipe := s.redis.Pipeline()
	pipe.ZRem(ctx, driverGeoKey, string(id))
	pipe.Del(ctx, driverKey(id))
	_, err := pipe.Exec(ctx)
	return err
}

// Nearby returns driver IDs within radiusKm of p, nearest first.
func (s *Store) Nearby(ctx context.Context, p geo.Coordinate, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// Snapshot assembles full driver snapshots for the given IDs, preserving
// order. Drivers whose records have expired are skipped.
func (s *Store) Snapshot(ctx context.Context, ids []types.ID) ([]Driver, error) {
	drivers := make([]Driver, 0, len(ids))
	for _, id := range ids {
		fields, err := s.redis.HGetAll(ctx, driverKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		pos, err := s.redis.GeoPos(ctx, driverGeoKey, string(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(pos) == 0 || pos[0] == nil {
			continue
		}

		d := Driver{
			ID:     id,
			Name:   fields["name"],
			Status: Status(fields["status"]),
			Location: geo.Coordinate{
				Lat: pos[0].Latitude,
				Lng: pos[0].Longitude,
			},
			Vehicle: fields["vehicle"],
		}
		if v := fields["rating"]; v != "" {
			if r, err := strconv.ParseFloat(v, 64); err == nil {
				d.Rating = r
			}
		}
		if v := fields["current_ride"]; v != "" {
			rideID := types.ID(v)
			d.CurrentRideID = &rideID
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}

func driverKey(id types.ID) string {
	return fmt.Sprintf(driverKeyPrefix, string(id))
}
