package confidence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	confidenceAggregations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fork_confidence_aggregations",
		Help: "The number of confidence views aggregated and swapped into the cache.",
	})
	confidenceRequestsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fork_confidence_requests_dropped",
		Help: "The number of aggregation requests dropped because the queue was full.",
	})
	confidenceRequestsSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fork_confidence_requests_superseded",
		Help: "The number of aggregation requests skipped in favor of a newer one.",
	})
	confidenceTotalStake = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fork_confidence_total_stake",
		Help: "The total staked lamports behind the cached confidence view.",
	})
)
