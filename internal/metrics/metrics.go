package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaloriapi_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaloriapi_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaloriapi_auth_failures_total",
			Help: "Total number of requests rejected for a missing or invalid API key",
		},
	)

	GateRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaloriapi_gate_rejections_total",
			Help: "Total number of requests rejected by the concurrency gate",
		},
	)

	GateInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kaloriapi_gate_in_flight",
			Help: "Requests currently holding a concurrency slot",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaloriapi_rate_limit_hits_total",
			Help: "Total number of rate-limited requests",
		},
		[]string{"window"},
	)

	UsagePurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaloriapi_usage_purged_total",
			Help: "Total usage records removed by retention cleanup",
		},
	)

	KeysIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaloriapi_keys_issued_total",
			Help: "Total API keys issued",
		},
	)
)

func RecordRequest(endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(durationSec)
}

func RecordRateLimitHit(window string) {
	RateLimitHits.WithLabelValues(window).Inc()
}
