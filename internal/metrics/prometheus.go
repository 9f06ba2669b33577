package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests served by the dashboard",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// UpstreamRequests counts calls to the statistics service by endpoint
	// and outcome (ok, unavailable, malformed).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_upstream_requests_total",
			Help: "Total number of requests sent to the statistics service",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_upstream_request_duration_seconds",
			Help:    "Statistics service request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	ChartRenderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_chart_render_failures_total",
			Help: "Total number of charts that could not be rendered",
		},
		[]string{"chart"},
	)

	SnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_snapshot_writes_total",
			Help: "Total number of consumption snapshots written to InfluxDB",
		},
		[]string{"measurement", "status"},
	)
)
