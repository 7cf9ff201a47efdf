// Package metrics holds the Prometheus collectors shared by the HTTP layer and the tariff engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeFound     = "found"
	OutcomeCacheHit  = "cache_hit"
	OutcomeNotFound  = "not_found"
	OutcomeAmbiguous = "ambiguous"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Point-in-time lookups by outcome
	TariffResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariff_resolutions_total",
			Help: "Tariff lookups partitioned by outcome",
		},
		[]string{"outcome"},
	)

	TariffSupersessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_supersessions_total",
			Help: "Open-ended tariffs closed by a newer tariff for the same key",
		},
	)

	TariffConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_conflicts_total",
			Help: "Tariff insertions rejected because they start inside a closed window",
		},
	)

	TariffIntegrityErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_integrity_errors_total",
			Help: "Lookups that matched more than one enabled tariff",
		},
	)
)
