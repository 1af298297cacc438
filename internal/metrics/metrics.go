// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roleadmin_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleadmin_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roleadmin_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CoefficientFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleadmin_coefficient_fallbacks_total",
			Help: "Pricing lookups that degraded to the neutral coefficient.",
		},
		[]string{"reason"},
	)

	BalanceMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleadmin_balance_mutations_total",
			Help: "Applied balance mutations by transaction context.",
		},
		[]string{"context"},
	)

	AuthorizationDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleadmin_authorization_denials_total",
			Help: "Requests rejected by the authorization gate.",
		},
		[]string{"capability", "action"},
	)
)

var once sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPInFlight,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			CoefficientFallbacks,
			BalanceMutations,
			AuthorizationDenials,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
