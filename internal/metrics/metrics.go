// Package metrics exposes Prometheus collectors for the workflow, the
// delivery pipeline and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnigo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omnigo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	FilesStaged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnigo_files_staged_total",
			Help: "Files accepted into a staging set",
		},
		[]string{"entry"},
	)

	FilesRefused = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnigo_files_refused_total",
			Help: "Files refused at staging",
		},
		[]string{"reason"},
	)

	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnigo_uploads_total",
			Help: "Simulated uploads by outcome",
		},
		[]string{"status"},
	)

	ReviewDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnigo_review_decisions_total",
			Help: "Approve and reject decisions",
		},
		[]string{"decision"},
	)

	Submissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omnigo_submissions_total",
			Help: "Submitted batches",
		},
	)

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnigo_deliveries_total",
			Help: "Delivery attempts by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "omnigo_active_sessions",
			Help: "Workflow sessions held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		FilesStaged,
		FilesRefused,
		Uploads,
		ReviewDecisions,
		Submissions,
		Deliveries,
		ActiveSessions,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one finished HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
