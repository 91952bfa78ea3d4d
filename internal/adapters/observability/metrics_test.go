package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per family so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveAnalysis("ok")
	observability.ObserveJobRun("review-sync", "ok")
	observability.ObserveEvent("reviews_added", "ok")
	observability.ReviewsIngested.WithLabelValues("google").Inc()

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	// the standalone metrics server built by Serve uses this same registry
	// construction, so every pipeline family must show up here
	for _, want := range []string{
		"rico_http_requests_total",
		"rico_analyses_total",
		"rico_job_runs_total",
		"rico_events_dispatched_total",
		"rico_reviews_ingested_total",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}
