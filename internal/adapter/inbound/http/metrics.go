package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for volviewd.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	ForwardedHeaders      *prometheus.CounterVec
	SessionConfigOutcomes *prometheus.CounterVec
	SettingsReloads       *prometheus.CounterVec
	RateLimited           *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volviewd",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "volviewd",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ForwardedHeaders: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volviewd",
				Name:      "forwarded_headers_total",
				Help:      "Reverse proxy headers seen while resolving the request origin",
			},
			[]string{"header"},
		),
		SessionConfigOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volviewd",
				Name:      "session_config_total",
				Help:      "Session configuration requests by outcome",
			},
			[]string{"outcome"}, // ok/unauthenticated/not_found/forbidden/error
		),
		SettingsReloads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volviewd",
				Name:      "settings_reloads_total",
				Help:      "Site settings reloads from the state file",
			},
			[]string{"result"}, // ok/error
		),
		RateLimited: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volviewd",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per-caller rate limit",
			},
			[]string{"key_type"}, // identity/ip
		),
	}
}
