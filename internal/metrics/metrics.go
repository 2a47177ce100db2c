package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultNetwork     = "network"
	ResultParse       = "parse"
	ResultRateLimited = "rate_limited"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackrecon_fetch_total",
			Help: "Carrier fetch attempts by outcome",
		},
		[]string{"carrier", "strategy", "result"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackrecon_fetch_duration_seconds",
			Help:    "Duration of a single carrier fetch",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"carrier", "strategy"},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackrecon_sync_runs_total",
			Help: "Finished reconciliation runs",
		},
		[]string{"mode", "result"},
	)

	SyncUpdatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackrecon_sync_updated_total",
			Help: "Records whose tracking status changed during reconciliation",
		},
	)

	SyncSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackrecon_sync_skipped_total",
			Help: "Scheduled runs skipped because a previous run was still in progress",
		},
	)

	StateCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackrecon_state_cache_total",
			Help: "Current-state cache lookups by result",
		},
		[]string{"result"},
	)
)
