package receiving_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"caseintake/internal/cases"
	"caseintake/internal/metrics"
	"caseintake/internal/receiving"
	"caseintake/internal/store"
	"caseintake/internal/testsupport"
)

func newClassifier(t *testing.T, st receiving.Store) *receiving.Classifier {
	t.Helper()
	return receiving.New(st, receiving.Options{OperationTimeout: 2 * time.Second})
}

func outcomes(results []receiving.Result) []receiving.Outcome {
	out := make([]receiving.Outcome, len(results))
	for i, r := range results {
		out[i] = r.Outcome
	}
	return out
}

func TestClassifyMixedSubmission(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedCase(t, st, "MC-1", "ORD-1", "packed")
	testsupport.SeedCase(t, st, "MC-4", "ORD-2", "packed")
	testsupport.SeedCase(t, st, "MC-5", "ORD-1", "generated")

	m := metrics.New()
	classifier := receiving.New(st, receiving.Options{OperationTimeout: 2 * time.Second, Metrics: m})
	input := []string{"MC-1", " MC-1 ", "MC-3", "MC-4", "https://qr.example/track/MC-5"}
	results := classifier.Classify(context.Background(), "ORD-1", "WH-9", input)

	want := []receiving.Outcome{
		receiving.OutcomeReceived,
		receiving.OutcomeDuplicateRequest,
		receiving.OutcomeNotFound,
		receiving.OutcomeWrongOrder,
		receiving.OutcomeReceived,
	}
	if len(results) != len(input) {
		t.Fatalf("expected %d results, got %d", len(input), len(results))
	}
	got := outcomes(results)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d: expected %s, got %s", i, want[i], got[i])
		}
		if results[i].Index != i || results[i].Input != input[i] {
			t.Fatalf("result %d not aligned with input: %#v", i, results[i])
		}
	}
	if results[1].DuplicateOf != 0 {
		t.Fatalf("expected duplicate to reference entry 0, got %d", results[1].DuplicateOf)
	}
	if results[4].Code != "MC-5" {
		t.Fatalf("expected tracking URL reduced to MC-5, got %q", results[4].Code)
	}
	if results[0].Case == nil || results[0].Case.WarehouseOrgID != "WH-9" || results[0].Case.ReceivedAt == nil {
		t.Fatalf("expected received snapshot, got %#v", results[0].Case)
	}

	summary := receiving.Summarize(results)
	if summary.Received != 2 || summary.Total != 5 || summary.DuplicateRequest != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if got := testutil.ToFloat64(m.ReceiveOutcomes.WithLabelValues("manual", "received")); got != 2 {
		t.Fatalf("expected 2 received in metrics, got %v", got)
	}

	other, err := st.GetMasterCaseByCode(context.Background(), "MC-4", "ORD-2")
	if err != nil {
		t.Fatalf("GetMasterCaseByCode failed: %v", err)
	}
	if other.OrderID != "ORD-2" || other.Status != cases.StatusPacked || other.ReceivedAt != nil {
		t.Fatalf("wrong-order case must not change, got %#v", other)
	}
}

func TestResubmitKeepsReceivedAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mc := testsupport.SeedCase(t, st, "MC-1", "ORD-1", "ready_to_ship")

	first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := first
	classifier := receiving.New(st, receiving.Options{Now: func() time.Time { return clock }})

	results := classifier.Classify(context.Background(), "ORD-1", "WH-1", []string{"MC-1"})
	if results[0].Outcome != receiving.OutcomeReceived {
		t.Fatalf("expected received, got %s", results[0].Outcome)
	}

	clock = first.Add(2 * time.Hour)
	results = classifier.Classify(context.Background(), "ORD-1", "WH-1", []string{"MC-1"})
	if results[0].Outcome != receiving.OutcomeAlreadyReceived {
		t.Fatalf("expected already_received, got %s", results[0].Outcome)
	}

	stored := testsupport.MustGetCase(t, st, mc.ID)
	if stored.ReceivedAt == nil || !stored.ReceivedAt.Equal(first) {
		t.Fatalf("expected receivedAt to stay %v, got %v", first, stored.ReceivedAt)
	}
	movements, err := st.ListMovements(context.Background(), "ORD-1")
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected exactly one movement, got %d", len(movements))
	}
}

func TestClassifyStatusOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedCase(t, st, "PEND", "ORD-1", "pending")
	testsupport.SeedCase(t, st, "SHIP", "ORD-1", "shipped_distributor")
	testsupport.SeedCase(t, st, "OPEN", "ORD-1", "opened")
	testsupport.SeedCase(t, st, "LEGACY", "ORD-1", "warehouse_packed")
	testsupport.SeedCase(t, st, "ODD", "ORD-1", "lost_in_transit")
	testsupport.SeedCase(t, st, "MIXED", "ORD-1", "Packed")

	results := newClassifier(t, st).Classify(context.Background(), "ORD-1", "WH-1",
		[]string{"PEND", "SHIP", "OPEN", "LEGACY", "ODD", "  ", "MIXED"})
	want := []receiving.Outcome{
		receiving.OutcomeInvalidStatus,
		receiving.OutcomeAlreadyShipped,
		receiving.OutcomeAlreadyShipped,
		receiving.OutcomeAlreadyReceived,
		receiving.OutcomeInvalidStatus,
		receiving.OutcomeInvalidFormat,
		receiving.OutcomeReceived,
	}
	got := outcomes(results)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestConcurrentSubmissionsReceiveOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedCase(t, st, "MC-1", "ORD-1", "packed")
	classifier := newClassifier(t, st)

	var received atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results := classifier.Classify(context.Background(), "ORD-1", "WH-1", []string{"MC-1"})
			switch results[0].Outcome {
			case receiving.OutcomeReceived:
				received.Add(1)
			case receiving.OutcomeAlreadyReceived:
			default:
				t.Errorf("unexpected outcome %s", results[0].Outcome)
			}
		}()
	}
	wg.Wait()
	if received.Load() != 1 {
		t.Fatalf("expected exactly one receive, got %d", received.Load())
	}
}

type failingStore struct {
	calls atomic.Int32
	err   error
	block bool
}

func (f *failingStore) GetMasterCaseByCode(ctx context.Context, code, preferOrderID string) (*cases.MasterCase, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, f.err
}

func (f *failingStore) CASMasterCaseStatus(context.Context, store.Transition) (bool, error) {
	return false, f.err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	fs := &failingStore{err: errors.New("disk I/O error")}
	classifier := receiving.New(fs, receiving.Options{BreakerMaxFailures: 2, BreakerOpenFor: time.Minute})

	results := classifier.Classify(context.Background(), "ORD-1", "WH-1", []string{"A", "B", "C", "D"})
	for i, r := range results {
		if r.Outcome != receiving.OutcomeError {
			t.Fatalf("result %d: expected error outcome, got %s", i, r.Outcome)
		}
	}
	if fs.calls.Load() != 2 {
		t.Fatalf("expected breaker to stop calls after 2 failures, store saw %d", fs.calls.Load())
	}
	if !receiving.Summarize(results).AllErrors() {
		t.Fatal("expected an all-error summary")
	}
}

func TestLookupTimeoutBecomesError(t *testing.T) {
	fs := &failingStore{block: true}
	classifier := receiving.New(fs, receiving.Options{OperationTimeout: 20 * time.Millisecond})

	results := classifier.Classify(context.Background(), "ORD-1", "WH-1", []string{"A", "", "A"})
	if results[0].Outcome != receiving.OutcomeError {
		t.Fatalf("expected error on timeout, got %s", results[0].Outcome)
	}
	if results[0].Message != "timed out, try again" {
		t.Fatalf("unexpected message %q", results[0].Message)
	}
	if results[1].Outcome != receiving.OutcomeInvalidFormat {
		t.Fatalf("expected invalid_format, got %s", results[1].Outcome)
	}
	if results[2].Outcome != receiving.OutcomeDuplicateRequest {
		t.Fatalf("expected duplicate_request, got %s", results[2].Outcome)
	}
}

func TestSummaryCountMatchesFields(t *testing.T) {
	results := []receiving.Result{
		{Outcome: receiving.OutcomeReceived},
		{Outcome: receiving.OutcomeAlreadyReceived},
		{Outcome: receiving.OutcomeError},
	}
	s := receiving.Summarize(results)
	total := 0
	for _, o := range receiving.Outcomes() {
		total += s.Count(o)
	}
	if total != s.Total {
		t.Fatalf("expected per-outcome counts to sum to %d, got %d", s.Total, total)
	}
	if s.Resolved() != 2 || s.AllErrors() {
		t.Fatalf("unexpected summary %#v", s)
	}
}
