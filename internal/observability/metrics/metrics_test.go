package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPricingMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPricingMetrics(registry, "api")

	m.RecordFallback("size")
	m.RecordFallback("size")
	m.RecordClassification("")
	m.RecordRecompute("room_override")

	if got := testutil.ToFloat64(m.fallbackTotal.WithLabelValues("api", "size")); got != 2 {
		t.Fatalf("expected 2 size fallbacks, got %v", got)
	}
	if got := testutil.ToFloat64(m.classificationTotal.WithLabelValues("api", "unknown")); got != 1 {
		t.Fatalf("expected empty outcome to count as unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.recomputeTotal.WithLabelValues("api", "room_override")); got != 1 {
		t.Fatalf("expected 1 recompute, got %v", got)
	}
}

func TestHTTPMiddlewareWithoutRouterUsesUnmatched(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))
	m.RecordRejected("rate_limited")

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()
	if !strings.Contains(body, `route="unmatched"`) || !strings.Contains(body, `status="418"`) {
		t.Fatalf("expected unmatched route with 418 status:\n%s", body)
	}
	if !strings.Contains(body, `reason="rate_limited"`) {
		t.Fatalf("expected rejected counter:\n%s", body)
	}
}
