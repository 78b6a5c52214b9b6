package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostel_cache_requests_total",
			Help: "Cache lookups by tier and result (hit, miss, expired)",
		},
		[]string{"tier", "result"},
	)

	CacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostel_cache_errors_total",
			Help: "Swallowed cache storage failures by tier and operation",
		},
		[]string{"tier", "op"},
	)

	// Allocation metrics
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostel_transitions_total",
			Help: "Allocation engine transitions by kind and result",
		},
		[]string{"kind", "result"},
	)

	RoomsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostel_rooms",
			Help: "Rooms currently loaded in the engine by status",
		},
		[]string{"status"},
	)

	NoticesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostel_notices_dropped_total",
			Help: "Decision notices not queued, by reason (stopped, timeout)",
		},
		[]string{"reason"},
	)

	// API metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostel_http_requests_total",
			Help: "HTTP requests by method and status",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheRequests,
		CacheErrors,
		Transitions,
		RoomsByStatus,
		NoticesDropped,
		HTTPRequests,
		HTTPRequestDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
