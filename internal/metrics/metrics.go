package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sensorhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Ingest metrics
	ReadingsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorhub_readings_ingested_total",
			Help: "Total number of readings applied to the store",
		},
		[]string{"source"}, // source: http, mqtt, simulation
	)

	SensorsRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sensorhub_sensors_registered_total",
			Help: "Total number of sensors auto-registered on first reading",
		},
	)

	AlertsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorhub_alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"type"},
	)

	// Broadcast metrics
	BroadcastEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorhub_broadcast_events_total",
			Help: "Total number of events broadcast to viewers",
		},
		[]string{"event"},
	)

	BroadcastDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sensorhub_broadcast_dropped_total",
			Help: "Messages dropped because a viewer's send buffer was full",
		},
	)

	ViewersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sensorhub_viewers_connected",
			Help: "Number of currently connected viewers",
		},
	)

	ViewerActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorhub_viewer_actions_total",
			Help: "Inbound viewer messages by action",
		},
		[]string{"action"}, // "invalid" for dropped messages
	)
)
