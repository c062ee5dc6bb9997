// README: Pool matching handlers (search + join request/accept/reject).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareride/internal/geo"
	"shareride/internal/modules/dispatch"
	"shareride/internal/modules/pool"
	"shareride/internal/modules/ride"
	"shareride/internal/types"
)

type PoolHandler struct {
	rides   *ride.Service
	pools   *pool.Service
	drivers *dispatch.Store
}

func NewPoolHandler(rides *ride.Service, pools *pool.Service, drivers *dispatch.Store) *PoolHandler {
	return &PoolHandler{rides: rides, pools: pools, drivers: drivers}
}

type searchPoolsReq struct {
	RiderID        string  `json:"rider_id"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	PickupName     string  `json:"pickup_name"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLng     float64 `json:"dropoff_lng"`
	DropoffName    string  `json:"dropoff_name"`
	DepartureTime  string  `json:"departure_time"`
	EstimatedFare  int64   `json:"estimated_fare"`
	PoolingEnabled bool    `json:"pooling_enabled"`
	FemaleOnly     bool    `json:"female_only"`
	RiderGender    string  `json:"rider_gender"`
	PassengerCount int     `json:"passenger_count"`
}

// Search scores every open poolable ride against the request and returns
// compatible candidates, best first. The result is advisory: seats are
// only committed when a join is accepted.
func (h *PoolHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req searchPoolsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	open, err := h.rides.ListPoolable(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "ride lookup failed")
		return
	}

	summaries := h.driverSummaries(c, open)
	candidates := make([]pool.ExistingRide, 0, len(open))
	for _, r := range open {
		if r.RiderID == types.ID(req.RiderID) {
			continue
		}
		candidates = append(candidates, toExistingRide(r, summaries))
	}

	matches, err := h.pools.FindAvailablePools(ctx, pool.RideRequest{
		RiderID:        types.ID(req.RiderID),
		Pickup:         geo.NamedPoint{Coordinate: geo.Coordinate{Lat: req.PickupLat, Lng: req.PickupLng}, Name: req.PickupName},
		Destination:    geo.NamedPoint{Coordinate: geo.Coordinate{Lat: req.DropoffLat, Lng: req.DropoffLng}, Name: req.DropoffName},
		DepartureTime:  req.DepartureTime,
		EstimatedFare:  req.EstimatedFare,
		PoolingEnabled: req.PoolingEnabled,
		FemaleOnly:     req.FemaleOnly,
		RiderGender:    pool.Gender(req.RiderGender),
		PassengerCount: req.PassengerCount,
	}, candidates)
	if err != nil {
		writeMatchError(c, err)
		return
	}

	out := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		out = append(out, gin.H{
			"ride_id":            m.RideID,
			"score":              m.Score,
			"detour_distance_km": m.DetourDistanceKm,
			"detour_time_min":    m.DetourTimeMin,
			"pickup_distance_km": m.PickupDistanceKm,
			"fare_share":         m.FareShare,
			"savings":            m.Savings,
			"route_summary":      m.RouteSummary,
			"driver": gin.H{
				"driver_id": m.Driver.ID,
				"name":      m.Driver.Name,
				"rating":    m.Driver.Rating,
				"vehicle":   m.Driver.Vehicle,
			},
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"matches": out})
}

type joinPoolReq struct {
	RiderID   string `json:"rider_id"`
	RiderName string `json:"rider_name"`
	FareShare int64  `json:"fare_share"`
	Currency  string `json:"currency"`
}

func (h *PoolHandler) RequestJoin(c *gin.Context) {
	var req joinPoolReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RiderID == "" {
		writeError(c, http.StatusBadRequest, "missing rider_id")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	id, err := h.rides.RequestJoin(c.Request.Context(), ride.JoinCommand{
		RideID:    types.ID(c.Param("id")),
		RiderID:   types.ID(req.RiderID),
		RiderName: req.RiderName,
		FareShare: types.Money{Amount: req.FareShare, Currency: req.Currency},
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"join_id": id, "status": ride.JoinPending})
}

func (h *PoolHandler) AcceptJoin(c *gin.Context) {
	if err := h.rides.AcceptJoin(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": ride.JoinAccepted})
}

func (h *PoolHandler) RejectJoin(c *gin.Context) {
	if err := h.rides.RejectJoin(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": ride.JoinRejected})
}

// driverSummaries resolves assigned drivers for the open rides in one
// snapshot call. Rides without a reachable driver fall back to an
// ID-only summary.
func (h *PoolHandler) driverSummaries(c *gin.Context, rides []ride.Ride) map[types.ID]dispatch.Driver {
	var ids []types.ID
	for _, r := range rides {
		if r.DriverID != nil {
			ids = append(ids, *r.DriverID)
		}
	}
	out := make(map[types.ID]dispatch.Driver, len(ids))
	if len(ids) == 0 {
		return out
	}
	drivers, err := h.drivers.Snapshot(c.Request.Context(), ids)
	if err != nil {
		return out
	}
	for _, d := range drivers {
		out[d.ID] = d
	}
	return out
}

func toExistingRide(r ride.Ride, drivers map[types.ID]dispatch.Driver) pool.ExistingRide {
	e := pool.ExistingRide{
		RideID:         r.ID,
		Pickup:         r.Pickup,
		Destination:    r.Dropoff,
		EstimatedFare:  r.EstimatedFare.Amount,
		PoolingEnabled: r.PoolingEnabled,
		FemaleOnly:     r.FemaleOnly,
		RiderGender:    pool.Gender(r.RiderGender),
	}
	for _, p := range r.Passengers {
		e.Passengers = append(e.Passengers, pool.Passenger{RiderID: p.RiderID, Name: p.Name})
	}
	if r.DriverID != nil {
		e.Driver = pool.DriverSummary{ID: *r.DriverID}
		if d, ok := drivers[*r.DriverID]; ok {
			e.Driver.Name = d.Name
			e.Driver.Rating = d.Rating
			e.Driver.Vehicle = d.Vehicle
		}
	}
	return e
}
