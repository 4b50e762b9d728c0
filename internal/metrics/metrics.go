package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatstore_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatstore_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Write path
	MessagesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_messages_written_total",
			Help: "Total messages durably written",
		},
	)

	IdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_idempotent_replays_total",
			Help: "Total writes answered from an existing idempotency claim",
		},
	)

	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_notify_failures_total",
			Help: "Total notification publish failures (non-fatal)",
		},
	)

	// Read path
	ReadWindows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_read_windows_total",
			Help: "Total read-window requests resolved",
		},
	)

	ReadRefFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_read_ref_failures_total",
			Help: "Total references omitted from pages due to resolve failures",
		},
	)

	SegmentRangeFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_segment_range_fetches_total",
			Help: "Total merged-span range fetches issued against segments",
		},
	)

	// Compaction
	CompactionRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_compaction_runs_total",
			Help: "Total planner ticks executed",
		},
	)

	SegmentsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_segments_built_total",
			Help: "Total segments built and published",
		},
	)

	MessagesCompacted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_messages_compacted_total",
			Help: "Total message references repointed from cas to seg",
		},
	)

	CompactionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatstore_compaction_failures_total",
			Help: "Total abandoned compaction batches",
		},
	)
)
