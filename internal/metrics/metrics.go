// Package metrics defines Prometheus metrics for dashsync.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashsync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashsync_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashsync_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashsync_fetches_total",
			Help: "Completed backend fetches by outcome",
		},
		[]string{"outcome"},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashsync_fetch_duration_seconds",
			Help:    "Backend fetch duration including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashsync_fetch_retries_total",
			Help: "Backend fetch attempts beyond the first",
		},
	)

	StaleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashsync_stale_results_total",
			Help: "Fetch results discarded because a newer request was issued",
		},
	)

	WarmupAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashsync_warmup_attempts_total",
			Help: "Backend warm-up probes by result",
		},
		[]string{"result"},
	)

	PushMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashsync_push_messages_total",
			Help: "Push payloads received by source and result",
		},
		[]string{"source", "result"},
	)

	RecordCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashsync_records",
			Help: "Records in the current dataset",
		},
	)

	LastSync = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashsync_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful dataset replacement",
		},
	)

	Phase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashsync_phase",
			Help: "1 for the active sync phase, 0 otherwise",
		},
		[]string{"phase"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashsync_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		FetchesTotal, FetchDuration, FetchRetries, StaleResults,
		WarmupAttempts, PushMessages,
		RecordCount, LastSync, Phase,
		WSConnections,
	)
}
