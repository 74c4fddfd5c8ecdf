// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes.
const (
	OutcomeMatched = "matched"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

var (
	// QueriesTotal counts query operations by outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaimono_queries_total",
			Help: "Total number of query operations",
		},
		[]string{"operation", "outcome"},
	)
	// QueryDuration is the latency of query operations that ran.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaimono_query_duration_seconds",
			Help:    "Query latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"operation"},
	)
	// DatasetRecords is the number of records currently served.
	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kaimono_dataset_records",
			Help: "Number of records in the loaded dataset",
		},
	)
	// RequestTotal counts HTTP requests by method, route pattern and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaimono_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveQuery records one query operation.
func ObserveQuery(operation, outcome string, elapsed time.Duration) {
	QueriesTotal.WithLabelValues(operation, outcome).Inc()
	if outcome == OutcomeMatched || outcome == OutcomeEmpty {
		QueryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// Middleware counts requests by chi route pattern, so path parameters do not
// multiply label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
