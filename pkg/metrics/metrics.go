package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts cache reads by cache kind (persistent|ttl) and result (hit|miss|expired|error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgnotes_cache_lookups_total",
			Help: "Total number of cache reads",
		},
		[]string{"cache", "result"},
	)

	// CacheWriteFailures counts writes that were swallowed after failing.
	CacheWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgnotes_cache_write_failures_total",
			Help: "Total number of failed cache writes",
		},
		[]string{"cache"},
	)

	// WorkerFetches records how intercepted requests were answered (network|cache_fallback|failed|share).
	WorkerFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgnotes_worker_fetches_total",
			Help: "Total number of intercepted requests by outcome",
		},
		[]string{"outcome"},
	)

	// WorkerTransitions counts lifecycle state changes.
	WorkerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgnotes_worker_transitions_total",
			Help: "Total number of worker lifecycle transitions",
		},
		[]string{"state"},
	)

	// ShareIngestions records share route submissions by result (stored|failed).
	ShareIngestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgnotes_share_ingestions_total",
			Help: "Total number of shared files received",
		},
		[]string{"result"},
	)

	// PendingSharedFiles tracks files waiting in the blob store.
	PendingSharedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dgnotes_pending_shared_files",
			Help: "Number of shared files waiting to be collected",
		},
	)

	// CacheGenerations tracks stored cache generations.
	CacheGenerations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dgnotes_cache_generations",
			Help: "Number of stored worker cache generations",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dgnotes_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
