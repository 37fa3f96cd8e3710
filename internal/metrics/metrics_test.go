package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"caseintake/internal/metrics"
)

func TestRecordOutcomeCounts(t *testing.T) {
	m := metrics.New()
	m.RecordOutcome("manual", "received")
	m.RecordOutcome("manual", "received")
	m.RecordOutcome("batch", "error")

	if got := testutil.ToFloat64(m.ReceiveOutcomes.WithLabelValues("manual", "received")); got != 2 {
		t.Fatalf("expected 2 manual receives, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReceiveOutcomes.WithLabelValues("batch", "error")); got != 1 {
		t.Fatalf("expected 1 batch error, got %v", got)
	}
}

func TestBreakerOpenCountsTrip(t *testing.T) {
	m := metrics.New()
	m.SetBreakerState("store", 2)
	m.SetBreakerState("store", 0)
	if got := testutil.ToFloat64(m.BreakerTrips.WithLabelValues("store")); got != 1 {
		t.Fatalf("expected one trip, got %v", got)
	}
	if got := testutil.ToFloat64(m.BreakerState.WithLabelValues("store")); got != 0 {
		t.Fatalf("expected closed state, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.RecordTick("completed")
	m.RecordHTTPRequest("GET", "/api/batches/{id}", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"caseintake_batch_ticks_total", "caseintake_http_requests_total"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %s in exposition", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.RecordOutcome("manual", "received")
	m.RecordTick("idle")
	m.SetBreakerState("store", 2)
}
