package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)
	metrics.Observe("update", OutcomeSuccess, 250*time.Millisecond)
	metrics.Observe("update", OutcomeFailure, 10*time.Millisecond)
	metrics.IncCoalesced()
	metrics.IncCoalesced()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_sync_requests_total", map[string]string{"op": "update", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_sync_coalesced_updates_total", nil); err != nil {
		t.Fatalf("fetch coalesced: %v", err)
	} else if got != 2 {
		t.Fatalf("expected coalesced=2, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "cart_sync_duration_seconds", map[string]string{"op": "update"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestHTTPMetricsLabelsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("POST", "/api/v1/cart/items", 409, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "http_requests_total", map[string]string{"method": "POST", "route": "/api/v1/cart/items", "status": "409"})
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected requests=1, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var sync *SyncMetrics
	sync.Observe("add", OutcomeSuccess, time.Second)
	sync.IncCoalesced()
	NewSyncMetrics(nil).Observe("add", OutcomeSuccess, time.Second)
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
