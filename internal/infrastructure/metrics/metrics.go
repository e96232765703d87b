// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ComputeDuration tracks how long one dashboard computation takes.
	ComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_compute_duration_seconds",
			Help:    "Duration of a full signal computation",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"source"},
	)

	// ThreadsEvaluated tracks the number of valid threads per computation.
	ThreadsEvaluated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signals_threads_evaluated",
			Help: "Valid threads in the most recent snapshot",
		},
	)

	// MalformedRecords counts thread records skipped during aggregation.
	MalformedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_malformed_records_total",
			Help: "Thread records skipped because they failed validation",
		},
		[]string{"field"},
	)

	// QueueHealth exposes the most recent queue health score.
	QueueHealth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signals_queue_health",
			Help: "Most recent queue health score (5-100)",
		},
	)

	// AlertsRaised counts alerts that became active.
	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_alerts_raised_total",
			Help: "Alerts that became active",
		},
		[]string{"type", "severity"},
	)

	// AlertsActive tracks currently active alerts.
	AlertsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signals_alerts_active",
			Help: "Alerts active after the most recent refresh",
		},
	)

	// WebSocketClients tracks connected websocket clients.
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signals_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)

	// PublishFailures counts alert fan-out failures by sink.
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_alert_publish_failures_total",
			Help: "Alert fan-out failures",
		},
		[]string{"sink"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordComputation records the outcome of one dashboard computation.
func RecordComputation(source string, duration float64, threads int, queueHealth float64) {
	ComputeDuration.WithLabelValues(source).Observe(duration)
	ThreadsEvaluated.Set(float64(threads))
	QueueHealth.Set(queueHealth)
}

// RecordMalformed increments the skipped-record counter.
func RecordMalformed(field string) {
	MalformedRecords.WithLabelValues(field).Inc()
}

// RecordAlertRaised increments the raised-alert counter.
func RecordAlertRaised(alertType, severity string) {
	AlertsRaised.WithLabelValues(alertType, severity).Inc()
}
