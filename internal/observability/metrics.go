package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram

	submissionsTotal       *prometheus.CounterVec
	submissionStepFailures *prometheus.CounterVec

	leaderboardRecomputes prometheus.Counter
	eventsPublishedTotal  *prometheus.CounterVec
	sseClientsActive      prometheus.Gauge

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Total number of files forwarded to object storage.",
		}, []string{"provider"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Total number of uploads rejected before forwarding.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for the upload relay.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of submission pipeline runs by outcome.",
		}, []string{"outcome"})

		submissionStepFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_step_failures_total",
			Help: "Failures of individual post-upload pipeline steps.",
		}, []string{"step"})

		leaderboardRecomputes = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leaderboard_recomputes_total",
			Help: "Total number of full leaderboard recomputations.",
		})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "change_events_published_total",
			Help: "Total number of collection change events published.",
		}, []string{"collection"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sse_clients_active",
			Help: "Number of currently connected change-feed subscribers.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			submissionsTotal,
			submissionStepFailures,
			leaderboardRecomputes,
			eventsPublishedTotal,
			sseClientsActive,
			httpRequestsTotal,
			httpLatencySeconds,
		)
	})
}

// UploadRequests exposes the counter for forwarded uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload relay latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// Submissions exposes the pipeline outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SubmissionStepFailures exposes the per-step failure counter.
func SubmissionStepFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionStepFailures
}

// LeaderboardRecomputes exposes the recomputation counter.
func LeaderboardRecomputes() prometheus.Counter {
	RegisterMetrics()
	return leaderboardRecomputes
}

// EventsPublished exposes the change-event counter.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// SSEClientsActive exposes the active subscriber gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}
