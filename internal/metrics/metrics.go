package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by the counters.
const (
	TierMemory   = "memory"
	TierStore    = "store"
	TierProvider = "provider"
	TierRegistry = "registry"
	TierFile     = "file"

	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abiscope_cache_lookups_total",
			Help: "Reference cache lookups by cache, tier and result",
		},
		[]string{"cache", "tier", "result"},
	)

	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abiscope_remote_calls_total",
			Help: "Calls to remote providers by service and result",
		},
		[]string{"service", "result"},
	)

	StreamRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abiscope_stream_rows_total",
			Help: "Stream rows by stream and outcome",
		},
		[]string{"stream", "status"},
	)
)

// ObserveRemote counts one remote call.
func ObserveRemote(service string, err error) {
	result := ResultHit
	if err != nil {
		result = ResultError
	}
	RemoteCallsTotal.WithLabelValues(service, result).Inc()
}
