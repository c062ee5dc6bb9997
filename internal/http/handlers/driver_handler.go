// README: Driver presence handlers (location upsert, go offline).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareride/internal/geo"
	"shareride/internal/modules/dispatch"
	"shareride/internal/types"
)

type DriverHandler struct {
	drivers *dispatch.Store
}

func NewDriverHandler(store *dispatch.Store) *DriverHandler {
	return &DriverHandler{drivers: store}
}

type updateDriverReq struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Status  string  `json:"status"`
	Rating  float64 `json:"rating"`
	Vehicle string  `json:"vehicle"`
}

func (h *DriverHandler) Update(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}

	var req updateDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	loc := geo.Coordinate{Lat: req.Lat, Lng: req.Lng}
	if err := loc.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	status := dispatch.Status(req.Status)
	switch status {
	case dispatch.StatusOnline, dispatch.StatusOffline, dispatch.StatusBusy:
	case "":
		status = dispatch.StatusOnline
	default:
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}

	err := h.drivers.Upsert(c.Request.Context(), dispatch.Driver{
		ID:       id,
		Name:     req.Name,
		Status:   status,
		Location: loc,
		Rating:   req.Rating,
		Vehicle:  req.Vehicle,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "driver update failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *DriverHandler) Remove(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	if err := h.drivers.Remove(c.Request.Context(), id); err != nil {
		writeError(c, http.StatusInternalServerError, "driver remove failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
