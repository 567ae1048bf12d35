package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records served API requests.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration, requests)
	return &HTTPMetrics{duration: duration, requests: requests}
}

// Observe records one served request. route should be the route pattern, not the raw path.
func (m *HTTPMetrics) Observe(method, route string, status int, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	route = normalizeLabel(route)
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
