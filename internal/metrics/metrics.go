// README: Prometheus collector for routing, pooling and dispatch counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ProviderCalls     prometheus.Counter
	ProviderFallbacks prometheus.Counter

	PoolsEvaluated prometheus.Counter
	PoolsMatched   prometheus.Counter

	DispatchAssigned prometheus.Counter
	DispatchNoDriver prometheus.Counter

	MatchDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ProviderCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareride_route_provider_calls_total",
			Help: "Total routing provider requests attempted.",
		}),
		ProviderFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareride_route_fallbacks_total",
			Help: "Total route estimates served from the local fallback.",
		}),
		PoolsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareride_pools_evaluated_total",
			Help: "Total pool candidates evaluated.",
		}),
		PoolsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareride_pools_matched_total",
			Help: "Total pool candidates returned as compatible.",
		}),
		DispatchAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareride_dispatch_assigned_total",
			Help: "Total requests assigned a driver.",
		}),
		DispatchNoDriver: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareride_dispatch_no_driver_total",
			Help: "Total requests with no eligible driver.",
		}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shareride_pool_match_duration_seconds",
			Help:    "Duration of a full pool matching pass.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}

	reg.MustRegister(
		c.ProviderCalls, c.ProviderFallbacks,
		c.PoolsEvaluated, c.PoolsMatched,
		c.DispatchAssigned, c.DispatchNoDriver,
		c.MatchDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
