// README: Dispatch handler: pick a nearby driver for a pending ride.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareride/internal/config"
	"shareride/internal/modules/dispatch"
	"shareride/internal/modules/pool"
	"shareride/internal/modules/ride"
	"shareride/internal/types"
)

type DispatchHandler struct {
	rides      *ride.Service
	dispatcher *dispatch.Service
	drivers    *dispatch.Store
	cfg        config.EngineConfig
}

func NewDispatchHandler(rides *ride.Service, dispatcher *dispatch.Service, drivers *dispatch.Store, cfg config.EngineConfig) *DispatchHandler {
	return &DispatchHandler{rides: rides, dispatcher: dispatcher, drivers: drivers, cfg: cfg}
}

// Dispatch finds the nearest eligible driver for a pending ride. A ride
// with no driver in range resolves to no_drivers_available rather than
// erroring.
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	ctx := c.Request.Context()
	rideID := types.ID(c.Param("id"))

	r, err := h.rides.Get(ctx, rideID)
	if err != nil {
		writeRideError(c, err)
		return
	}
	if r.Status != ride.StatusPending {
		writeError(c, http.StatusConflict, "ride is not pending")
		return
	}

	req := rideToRequest(r)

	ids, err := h.drivers.Nearby(ctx, r.Pickup.Coordinate, h.cfg.DispatchRadiusKm)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "driver lookup failed")
		return
	}
	candidates, err := h.drivers.Snapshot(ctx, ids)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "driver lookup failed")
		return
	}

	assignment, err := h.dispatcher.AssignOptimalDriver(req, candidates)
	if err != nil {
		writeMatchError(c, err)
		return
	}
	if assignment == nil {
		if err := h.rides.MarkNoDrivers(ctx, rideID); err != nil {
			writeRideError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"status": ride.StatusNoDrivers})
		return
	}

	if err := h.rides.AssignDriver(ctx, ride.AssignCommand{RideID: rideID, DriverID: assignment.Driver.ID}); err != nil {
		writeRideError(c, err)
		return
	}

	// mark the driver busy so later searches skip them
	d := assignment.Driver
	d.Status = dispatch.StatusBusy
	d.CurrentRideID = &rideID
	if err := h.drivers.Upsert(ctx, d); err != nil {
		writeError(c, http.StatusInternalServerError, "driver update failed")
		return
	}

	writeJSON(c, http.StatusOK, gin.H{
		"status":      ride.StatusDriverAssigned,
		"driver_id":   assignment.Driver.ID,
		"driver_name": assignment.Driver.Name,
		"rating":      assignment.Driver.Rating,
		"vehicle":     assignment.Driver.Vehicle,
		"distance":    assignment.Distance,
		"eta":         assignment.ETA,
	})
}

// Options lists every eligible driver for a pending ride, nearest first.
func (h *DispatchHandler) Options(c *gin.Context) {
	ctx := c.Request.Context()

	r, err := h.rides.Get(ctx, types.ID(c.Param("id")))
	if err != nil {
		writeRideError(c, err)
		return
	}
	req := rideToRequest(r)

	ids, err := h.drivers.Nearby(ctx, r.Pickup.Coordinate, h.cfg.DispatchRadiusKm)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "driver lookup failed")
		return
	}
	candidates, err := h.drivers.Snapshot(ctx, ids)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "driver lookup failed")
		return
	}

	options, err := h.dispatcher.FindAvailableDrivers(req, candidates)
	if err != nil {
		writeMatchError(c, err)
		return
	}

	out := make([]gin.H, 0, len(options))
	for _, o := range options {
		out = append(out, gin.H{
			"driver_id":   o.Driver.ID,
			"driver_name": o.Driver.Name,
			"rating":      o.Driver.Rating,
			"vehicle":     o.Driver.Vehicle,
			"distance_km": o.DistanceKm,
			"eta_min":     o.EtaMin,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": out})
}

func rideToRequest(r *ride.Ride) pool.RideRequest {
	return pool.RideRequest{
		RiderID:        r.RiderID,
		Pickup:         r.Pickup,
		Destination:    r.Dropoff,
		DepartureTime:  r.DepartureTime,
		EstimatedFare:  r.EstimatedFare.Amount,
		PoolingEnabled: r.PoolingEnabled,
		FemaleOnly:     r.FemaleOnly,
		RiderGender:    pool.Gender(r.RiderGender),
		PassengerCount: r.PassengerCount,
	}
}
