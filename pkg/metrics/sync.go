package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDuplicate = "duplicate"
)

// SyncMetrics records persisted-cart synchronization traffic.
type SyncMetrics struct {
	duration  *prometheus.HistogramVec
	requests  *prometheus.CounterVec
	coalesced prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_duration_seconds",
		Help:    "Duration of persisted-cart requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_requests_total",
		Help: "Persisted-cart requests by operation and outcome.",
	}, []string{"op", "outcome"})
	coalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_coalesced_updates_total",
		Help: "Item updates folded into a pending update instead of being sent.",
	})
	reg.MustRegister(duration, requests, coalesced)
	return &SyncMetrics{
		duration:  duration,
		requests:  requests,
		coalesced: coalesced,
	}
}

// Observe records one finished request.
func (m *SyncMetrics) Observe(op, outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	op = normalizeLabel(op)
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
	m.requests.WithLabelValues(op, normalizeLabel(outcome)).Inc()
}

// IncCoalesced counts an update that merged into a pending one.
func (m *SyncMetrics) IncCoalesced() {
	if m == nil || m.coalesced == nil {
		return
	}
	m.coalesced.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
