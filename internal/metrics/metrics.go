// Package metrics registers the Prometheus collectors of the BFF and exposes them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

var (
	// HTTPRequestsTotal counts served requests by route pattern and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mis_http_requests_total",
		Help: "Total HTTP requests served by the BFF",
	}, []string{"route", "code"})
	// HTTPDurationMs observes request latency by route pattern.
	HTTPDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mis_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"route"})
	// UpstreamRequestsTotal counts upstream API calls by operation and outcome (ok, unauthorized, no_token, error).
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mis_upstream_requests_total",
		Help: "Total upstream API calls",
	}, []string{"operation", "outcome"})
	// UpstreamDurationMs observes upstream call latency by operation.
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mis_upstream_duration_ms",
		Help:    "Upstream API call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"operation"})
	// ProxyRequestsTotal counts /api proxy requests by method and upstream status code.
	ProxyRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mis_proxy_requests_total",
		Help: "Total requests forwarded by the API proxy",
	}, []string{"method", "code"})
	// GuardRedirectsTotal counts route guard redirects by target.
	GuardRedirectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mis_guard_redirects_total",
		Help: "Route guard redirects by target",
	}, []string{"target"})
	// SessionWritesTotal counts session mutations by operation and result.
	SessionWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mis_session_writes_total",
		Help: "Session token writes by operation and result",
	}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPDurationMs)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(ProxyRequestsTotal)
	prometheus.MustRegister(GuardRedirectsTotal)
	prometheus.MustRegister(SessionWritesTotal)
}

// Handler exposes the default registry for Prometheus scraping.
func Handler() http.Handler { return promhttp.Handler() }
