// README: Ride lifecycle handlers (create/get/start/complete/cancel).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareride/internal/geo"
	"shareride/internal/modules/ride"
	"shareride/internal/types"
)

type RideHandler struct {
	rides *ride.Service
}

func NewRideHandler(svc *ride.Service) *RideHandler {
	return &RideHandler{rides: svc}
}

type createRideReq struct {
	RiderID        string  `json:"rider_id"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	PickupName     string  `json:"pickup_name"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLng     float64 `json:"dropoff_lng"`
	DropoffName    string  `json:"dropoff_name"`
	DepartureTime  string  `json:"departure_time"`
	EstimatedFare  int64   `json:"estimated_fare"`
	Currency       string  `json:"currency"`
	PoolingEnabled bool    `json:"pooling_enabled"`
	FemaleOnly     bool    `json:"female_only"`
	RiderGender    string  `json:"rider_gender"`
	PassengerCount int     `json:"passenger_count"`
}

func (h *RideHandler) Create(c *gin.Context) {
	var req createRideReq
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
	id, err := h.rides.Create(c.Request.Context(), ride.CreateCommand{
		RiderID:        types.ID(req.RiderID),
		Pickup:         geo.NamedPoint{Coordinate: geo.Coordinate{Lat: req.PickupLat, Lng: req.PickupLng}, Name: req.PickupName},
		Dropoff:        geo.NamedPoint{Coordinate: geo.Coordinate{Lat: req.DropoffLat, Lng: req.DropoffLng}, Name: req.DropoffName},
		DepartureTime:  req.DepartureTime,
		EstimatedFare:  types.Money{Amount: req.EstimatedFare, Currency: req.Currency},
		PoolingEnabled: req.PoolingEnabled,
		FemaleOnly:     req.FemaleOnly,
		RiderGender:    req.RiderGender,
		PassengerCount: req.PassengerCount,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"ride_id": id, "status": ride.StatusPending})
}

func (h *RideHandler) Get(c *gin.Context) {
	r, err := h.rides.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rideView(r))
}

func (h *RideHandler) Start(c *gin.Context) {
	if err := h.rides.Start(c.Request.Context(), ride.StartCommand{RideID: types.ID(c.Param("id"))}); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": ride.StatusInProgress})
}

func (h *RideHandler) Complete(c *gin.Context) {
	if err := h.rides.Complete(c.Request.Context(), ride.CompleteCommand{RideID: types.ID(c.Param("id"))}); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": ride.StatusCompleted})
}

func (h *RideHandler) Cancel(c *gin.Context) {
	err := h.rides.Cancel(c.Request.Context(), ride.CancelCommand{
		RideID:    types.ID(c.Param("id")),
		ActorType: "rider",
		Reason:    "user_cancel",
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": ride.StatusCancelled})
}

func rideView(r *ride.Ride) gin.H {
	passengers := make([]gin.H, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		passengers = append(passengers, gin.H{
			"rider_id":   p.RiderID,
			"name":       p.Name,
			"fare_share": p.FareShare.Amount,
			"joined_at":  p.JoinedAt,
		})
	}
	v := gin.H{
		"ride_id":         r.ID,
		"rider_id":        r.RiderID,
		"status":          r.Status,
		"pickup_name":     r.Pickup.Name,
		"dropoff_name":    r.Dropoff.Name,
		"departure_time":  r.DepartureTime,
		"estimated_fare":  r.EstimatedFare.Amount,
		"currency":        r.EstimatedFare.Currency,
		"pooling_enabled": r.PoolingEnabled,
		"passengers":      passengers,
	}
	if r.DriverID != nil {
		v["driver_id"] = *r.DriverID
	}
	return v
}
