// Package metrics exposes the Prometheus collectors used by the API.
//
// HTTP metrics:
//   - foodgram_http_requests_total (method, route, status)
//   - foodgram_http_request_duration_seconds (method, route)
//   - foodgram_http_requests_in_flight
//
// Domain metrics:
//   - foodgram_recipes_written_total (operation: create, update, delete)
//   - foodgram_memberships_total (kind: favorite, shopping_cart; action: add, remove)
//   - foodgram_shopping_lists_downloaded_total
//   - foodgram_reference_cache_total (result: hit, miss)
//
// Storage metrics:
//   - foodgram_image_store_operations_total (backend, operation, result)
//   - foodgram_circuit_breaker_state (name), 0=closed 1=open 2=half-open
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foodgram_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	RecipesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipes_written_total",
			Help: "Total number of committed recipe writes",
		},
		[]string{"operation"},
	)

	Memberships = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_memberships_total",
			Help: "Total number of favorite and shopping cart toggles",
		},
		[]string{"kind", "action"},
	)

	ShoppingListsDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_lists_downloaded_total",
			Help: "Total number of shopping lists rendered for download",
		},
	)

	ReferenceCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_reference_cache_total",
			Help: "Tag and ingredient cache lookups",
		},
		[]string{"result"},
	)

	ImageStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_image_store_operations_total",
			Help: "Total number of image store operations",
		},
		[]string{"backend", "operation", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "foodgram_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequest records one served request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordImageOperation records the outcome of an image store call
func RecordImageOperation(backend, operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ImageStoreOperations.WithLabelValues(backend, operation, result).Inc()
}

// RecordCacheLookup records a reference cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		ReferenceCache.WithLabelValues("hit").Inc()
		return
	}
	ReferenceCache.WithLabelValues("miss").Inc()
}
