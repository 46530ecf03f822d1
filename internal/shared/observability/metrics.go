// # internal/shared/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StatementsClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekoscript_statements_classified_total",
		Help: "Total number of source lines classified, by statement kind.",
	}, []string{"kind"})

	OutputEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekoscript_output_events_total",
		Help: "Total number of interpretation events produced, by severity.",
	}, []string{"kind"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nekoscript_operation_seconds",
		Help:    "Time spent on run, transpile and build operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	VerifyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekoscript_verify_syntax_errors_total",
		Help: "Total number of syntax errors found in generated artifacts.",
	}, []string{"language"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekoscript_http_requests_total",
		Help: "Total number of HTTP API requests, by route and status code.",
	}, []string{"route", "code"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_http_rate_limited_total",
		Help: "Total number of HTTP requests rejected by the rate limiter.",
	})

	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nekoscript_write_queue_depth",
		Help: "Current number of run records waiting to be persisted.",
	})

	WriteQueueEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_write_queue_enqueued_total",
		Help: "Total number of run records accepted into the in-memory queue.",
	})

	WriteQueueDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_write_queue_dropped_total",
		Help: "Total number of run records dropped due to backpressure.",
	})

	WriteQueueApplyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_write_queue_apply_errors_total",
		Help: "Total number of run record batch apply errors.",
	})

	WriteQueueProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_write_queue_processed_total",
		Help: "Total number of run records successfully persisted.",
	})

	WriteQueueSpilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_write_queue_spilled_total",
		Help: "Total number of run records spilled to the sqlite spool.",
	})

	WriteQueueRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nekoscript_write_queue_retry_total",
		Help: "Total number of spooled run records scheduled for retry.",
	})

	WriteSpoolDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nekoscript_write_spool_depth",
		Help: "Current number of run records waiting in the sqlite spool.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nekoscript_runs_total",
		Help: "Total number of interpret and transpile runs, by mode.",
	}, []string{"mode"})

	WriteQueueFlushLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nekoscript_write_queue_flush_seconds",
		Help:    "Latency for persisting a batch of run records.",
		Buckets: prometheus.DefBuckets,
	})
)
