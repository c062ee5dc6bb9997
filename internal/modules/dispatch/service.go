// README: Dispatch service ranks online drivers by proximity to a request.
package dispatch

import (
	"fmt"
	"sort"

	"shareride/internal/config"
	"shareride/internal/geo"
	"shareride/internal/metrics"
	"shareride/internal/modules/pool"
)

// etaMinPerKm converts straight-line distance into a pickup ETA.
const etaMinPerKm = 3.0

// Service is the dispatch engine. Like the pool matcher it is stateless:
// the caller supplies driver snapshots per call.
type Service struct {
	cfg     config.EngineConfig
	metrics *metrics.Collector
}

func NewService(cfg config.EngineConfig, m *metrics.Collector) *Service {
	return &Service{cfg: cfg, metrics: m}
}

// FindAvailableDrivers filters to online, unassigned drivers within the
// dispatch radius of the request pickup and ranks them nearest first,
// stable on input order. Ranking is strictly by proximity; rating and load
// never break ties.
func (s *Service) FindAvailableDrivers(req pool.RideRequest, drivers []Driver) ([]Option, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	for i := range drivers {
		if err := drivers[i].Location.Validate(); err != nil {
			return nil, fmt.Errorf("driver %s: %w: %v", drivers[i].ID, pool.ErrInvalidInput, err)
		}
	}

	options := make([]Option, 0, len(drivers))
	for _, d := range drivers {
		if !d.available() {
			continue
		}
		dist := geo.HaversineKm(req.Pickup.Coordinate, d.Location)
		if dist > s.cfg.DispatchRadiusKm {
			continue
		}
		options = append(options, Option{
			Driver:     d,
			DistanceKm: dist,
			EtaMin:     dist * etaMinPerKm,
		})
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].DistanceKm < options[j].DistanceKm })
	return options, nil
}

// AssignOptimalDriver selects the nearest eligible driver. A nil assignment
// with a nil error means no driver is simultaneously online, unassigned,
// and within the dispatch radius; that is a normal outcome, not a failure.
func (s *Service) AssignOptimalDriver(req pool.RideRequest, drivers []Driver) (*Assignment, error) {
	options, err := s.FindAvailableDrivers(req, drivers)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		if s.metrics != nil {
			s.metrics.DispatchNoDriver.Inc()
		}
		return nil, nil
	}
	best := options[0]
	if s.metrics != nil {
		s.metrics.DispatchAssigned.Inc()
	}
	return &Assignment{
		Driver:     best.Driver,
		DistanceKm: best.DistanceKm,
		EtaMin:     best.EtaMin,
		ETA:        fmt.Sprintf("%.0f mins", best.EtaMin),
		Distance:   fmt.Sprintf("%.1f km", best.DistanceKm),
	}, nil
}
