// FilePath: internal/monitoring/monitoring.go
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spoilsense_readings_ingested_total",
			Help: "Total number of readings ingested",
		},
		[]string{"device_id", "source"}, // source: poll, push
	)

	ReadingRatio = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spoilsense_reading_ratio",
			Help: "Last observed Rs/Ro ratio per device",
		},
		[]string{"device_id"},
	)

	// Alert engine metrics
	AlertDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spoilsense_alert_decisions_total",
			Help: "Alert engine decisions by outcome",
		},
		[]string{"outcome", "kind"}, // outcome: created, suppressed, resolved
	)

	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spoilsense_notifications_failed_total",
			Help: "Voice call dispatches that failed",
		},
	)

	// Collector metrics
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spoilsense_device_polls_total",
			Help: "Device poll attempts by result",
		},
		[]string{"status"}, // status: success, failed
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spoilsense_device_poll_duration_seconds",
			Help:    "Time taken to fetch a device status payload",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Housekeeping metrics
	PrunedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spoilsense_pruned_records_total",
			Help: "Records removed by retention housekeeping",
		},
		[]string{"table"}, // table: readings, alerts
	)
)
