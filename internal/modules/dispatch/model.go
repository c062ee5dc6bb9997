// README: Driver snapshots and dispatch decision records.
package dispatch

import (
	"shareride/internal/geo"
	"shareride/internal/types"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusBusy    Status = "busy"
)

// Driver is an immutable snapshot of one driver at evaluation time. The
// authoritative record lives outside the engine.
type Driver struct {
	ID            types.ID
	Name          string
	Status        Status
	Location      geo.Coordinate
	CurrentRideID *types.ID
	Rating        float64
	Vehicle       string
}

// available reports whether the driver can take a new request.
func (d Driver) available() bool {
	return d.Status == StatusOnline && d.CurrentRideID == nil
}

// Option is one eligible driver with proximity figures, nearest first in
// ranked output.
type Option struct {
	Driver     Driver
	DistanceKm float64
	EtaMin     float64
}

// Assignment is the selected driver with display-ready ETA and distance.
type Assignment struct {
	Driver     Driver
	DistanceKm float64
	EtaMin     float64
	ETA        string
	Distance   string
}
