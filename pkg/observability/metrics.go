// Package observability exposes Prometheus metrics and health
// endpoints for the conversation engine.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Activation metrics
	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorchat_activations_total",
			Help: "Total number of conversation activations",
		},
		[]string{"result"}, // ready, draft, superseded, noop
	)

	activationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorchat_activation_duration_seconds",
			Help:    "Conversation activation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// Message exchange metrics
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorchat_sends_total",
			Help: "Total number of message send attempts",
		},
		[]string{"status"}, // confirmed, rejected, rate_limited, failed
	)

	exchangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tutorchat_exchange_duration_seconds",
			Help:    "Round-trip duration of a confirmed message exchange",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Content resolution metrics
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorchat_content_resolutions_total",
			Help: "Content id resolutions by outcome tier",
		},
		[]string{"tier"}, // module, direct, placeholder
	)

	// Session listing metrics
	sessionListsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorchat_session_lists_total",
			Help: "Session listing refreshes",
		},
		[]string{"status"}, // ok, degraded
	)

	initOnce sync.Once
)

// InitMetrics registers all metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			activationsTotal,
			activationDuration,
			sendsTotal,
			exchangeDuration,
			resolutionsTotal,
			sessionListsTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordActivation records one activation outcome.
func RecordActivation(result string, duration time.Duration) {
	activationsTotal.WithLabelValues(result).Inc()
	activationDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordSend records one message send attempt.
func RecordSend(status string) {
	sendsTotal.WithLabelValues(status).Inc()
}

// RecordExchangeDuration records the round trip of a confirmed
// exchange.
func RecordExchangeDuration(duration time.Duration) {
	exchangeDuration.Observe(duration.Seconds())
}

// RecordResolution records which tier resolved a content id.
func RecordResolution(tier string) {
	resolutionsTotal.WithLabelValues(tier).Inc()
}

// RecordSessionList records a session listing refresh outcome.
func RecordSessionList(status string) {
	sessionListsTotal.WithLabelValues(status).Inc()
}
