package pool

import (
	"math"

	"shareride/internal/config"
)

// Score weights. Each threshold contributes its weight when the metric sits
// exactly at the limit.
const (
	detourDistanceWeight = 40.0
	detourTimeWeight     = 30.0
	pickupDistanceWeight = 20.0
	efficiencyBonusMax   = 10.0
	efficiencyPenalty    = 50.0
)

// routeMetrics carries the solo and combined route figures for one
// candidate comparison.
type routeMetrics struct {
	SoloDistanceKm      float64
	SoloDurationMin     float64
	CombinedDistanceKm  float64
	CombinedDurationMin float64
	PickupDistanceKm    float64
}

func (m routeMetrics) detourDistanceKm() float64 { return m.CombinedDistanceKm - m.SoloDistanceKm }
func (m routeMetrics) detourTimeMin() float64    { return m.CombinedDurationMin - m.SoloDurationMin }

// scoreCompatibility turns route metrics into a pass/fail decision and a
// 0..100 score. Compatible means all three detour/pickup thresholds hold.
func scoreCompatibility(cfg config.EngineConfig, m routeMetrics) (compatible bool, score int) {
	dd := m.detourDistanceKm()
	dt := m.detourTimeMin()
	pd := m.PickupDistanceKm

	compatible = dd <= cfg.MaxDetourDistanceKm &&
		dt <= cfg.MaxDetourTimeMin &&
		pd <= cfg.MaxPickupDistanceKm

	s := 100.0
	s -= dd / cfg.MaxDetourDistanceKm * detourDistanceWeight
	s -= dt / cfg.MaxDetourTimeMin * detourTimeWeight
	s -= pd / cfg.MaxPickupDistanceKm * pickupDistanceWeight

	if m.SoloDistanceKm > 0 {
		stretch := m.CombinedDistanceKm/m.SoloDistanceKm - 1
		s += math.Max(0, efficiencyBonusMax-stretch*efficiencyPenalty)
	}

	if s < 0 {
		s = 0
	} else if s > 100 {
		s = 100
	}
	return compatible, int(math.Round(s))
}
