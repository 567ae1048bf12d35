package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quotecart/pkg/logger"
	"github.com/angelmondragon/quotecart/pkg/metrics"
)

func TestOwnerRejectsMissingHeader(t *testing.T) {
	called := false
	handler := Owner(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if called {
		t.Fatalf("handler should not run without owner")
	}
}

func TestOwnerInjectsTrimmedOwner(t *testing.T) {
	var got string
	handler := Owner(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = OwnerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(OwnerHeader, "  owner-7 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "owner-7" {
		t.Fatalf("expected owner-7 got %q", got)
	}
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestLoggingRecordsRouteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(Logging(logger.Nop(), httpMetrics))
	r.Get("/api/v1/cart/items/{itemId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart/items/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart/items/def", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var count float64
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["route"] == "/api/v1/cart/items/{itemId}" && labels["status"] == "404" {
				count += metric.GetCounter().GetValue()
			}
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 requests under the route pattern, got %v", count)
	}
}
