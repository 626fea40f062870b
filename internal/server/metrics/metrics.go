// Package metrics exposes Prometheus instrumentation for the authentication
// flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeConflict     = "conflict"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// AuthMetrics counts flow outcomes and times each flow. A nil *AuthMetrics
// records nothing.
type AuthMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewAuthMetrics registers the collectors with reg. A nil reg falls back to
// prometheus.DefaultRegisterer.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &AuthMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total number of authentication flow calls by outcome",
		}, []string{"flow", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_request_duration_seconds",
			Help:    "Histogram of authentication flow latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
	}
}

// Observe records one completed call of flow.
func (m *AuthMetrics) Observe(flow, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(flow, outcome).Inc()
	m.duration.WithLabelValues(flow).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
