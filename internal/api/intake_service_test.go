package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"caseintake/internal/batchjob"
	"caseintake/internal/cases"
	"caseintake/internal/progress"
	"caseintake/internal/receiving"
	"caseintake/internal/services"
	"caseintake/internal/store"
	"caseintake/internal/testsupport"
)

func newTestService(t *testing.T, inlineLimit int) (*IntakeService, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	classifier := receiving.NewFromConfig(cfg, st, nil, nil)
	coord := batchjob.NewFromConfig(cfg, st, classifier, nil, nil, nil)
	agg := progress.NewAggregator(st, 0, nil)
	return NewIntakeService(classifier, coord, agg, inlineLimit), st
}

func TestSubmitReceiveCombinesCodesAndRaw(t *testing.T) {
	svc, st := newTestService(t, 0)
	testsupport.SeedCase(t, st, "abc123", "ORD-1", "packed")
	testsupport.SeedCase(t, st, "XYZ789", "ORD-1", "ready_to_ship")

	resp, err := svc.SubmitReceive(context.Background(), ReceiveRequest{
		OrderID:        "ORD-1",
		WarehouseOrgID: "WH-1",
		Codes:          []string{"abc123"},
		Raw:            " abc123 \n https://x/track/XYZ789 \t foo,https://x/track/",
	})
	if err != nil {
		t.Fatalf("SubmitReceive failed: %v", err)
	}
	if len(resp.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(resp.Results))
	}
	wantOutcomes := []string{"received", "duplicate_request", "received", "not_found"}
	for i, want := range wantOutcomes {
		if resp.Results[i].Outcome != want {
			t.Fatalf("result %d: expected %s, got %s", i, want, resp.Results[i].Outcome)
		}
	}
	if resp.Results[1].DuplicateOf == nil || *resp.Results[1].DuplicateOf != 0 {
		t.Fatalf("expected duplicateOf 0, got %v", resp.Results[1].DuplicateOf)
	}
	if resp.Results[0].Case == nil || resp.Results[0].Case.ReceivedAt == "" {
		t.Fatalf("expected case snapshot with receivedAt, got %#v", resp.Results[0].Case)
	}
	if resp.Summary.Received != 2 || resp.Parse.Invalid != 1 || resp.Parse.Duplicates != 1 || resp.Parse.Unique != 3 {
		t.Fatalf("unexpected summary %#v parse %#v", resp.Summary, resp.Parse)
	}
}

func TestSubmitReceiveValidation(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()

	_, err := svc.SubmitReceive(ctx, ReceiveRequest{WarehouseOrgID: "WH-1", Codes: []string{"A"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fields := FieldErrors(err); fields["orderId"] == "" {
		t.Fatalf("expected orderId field error, got %v", fields)
	}

	_, err = svc.SubmitReceive(ctx, ReceiveRequest{OrderID: "ORD 1", WarehouseOrgID: "WH-1", Codes: []string{"A"}})
	if fields := FieldErrors(err); fields["orderId"] != "must not contain whitespace" {
		t.Fatalf("expected whitespace rejection, got %v", err)
	}

	_, err = svc.SubmitReceive(ctx, ReceiveRequest{OrderID: "ORD-1", WarehouseOrgID: "WH-1"})
	if fields := FieldErrors(err); fields["codes"] == "" || fields["raw"] == "" {
		t.Fatalf("expected codes/raw field errors, got %v", err)
	}

	_, err = svc.SubmitReceive(ctx, ReceiveRequest{OrderID: "ORD-1", WarehouseOrgID: "WH-1", Raw: " ,;\n"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank input, got %v", err)
	}

	_, err = svc.SubmitReceive(ctx, ReceiveRequest{OrderID: "ORD-1", WarehouseOrgID: "WH-1", Codes: []string{"A", "B", "C"}})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "inline limit") {
		t.Fatalf("expected inline limit error, got %v", err)
	}
}

func TestBatchLifecycleThroughService(t *testing.T) {
	svc, st := newTestService(t, 0)
	ctx := context.Background()
	testsupport.SeedBatch(t, st, cases.Batch{BatchID: "LOT-1", OrderID: "ORD-1", WarehouseOrgID: "WH-1"}, 3, "generated")

	started, err := svc.StartBatchJob(ctx, "LOT-1")
	if err != nil {
		t.Fatalf("StartBatchJob failed: %v", err)
	}
	if !started.Started || started.Status != "queued" {
		t.Fatalf("unexpected start response %#v", started)
	}

	tick, err := svc.TickBatchJob(ctx, "LOT-1")
	if err != nil {
		t.Fatalf("TickBatchJob failed: %v", err)
	}
	if tick.Outcome != "completed" || tick.Summary.Received != 3 {
		t.Fatalf("unexpected tick %#v", tick)
	}

	status, err := svc.GetBatchJobStatus(ctx, "LOT-1")
	if err != nil {
		t.Fatalf("GetBatchJobStatus failed: %v", err)
	}
	if status.Status != "completed" || status.ProgressCount != 3 || status.IsStale || status.CompletedAt == "" {
		t.Fatalf("unexpected status %#v", status)
	}

	reset, err := svc.ResetBatchJob(ctx, "LOT-1")
	if err != nil {
		t.Fatalf("ResetBatchJob failed: %v", err)
	}
	if reset.Status != "idle" {
		t.Fatalf("expected idle, got %s", reset.Status)
	}

	if _, err := svc.StartBatchJob(ctx, "LOT-404"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOverviewThroughService(t *testing.T) {
	svc, st := newTestService(t, 0)
	ctx := context.Background()

	none, err := svc.GetOrderMovementOverview(ctx, "ORD-1", "WH-1")
	if err != nil || none != nil {
		t.Fatalf("expected nil overview, got %#v err=%v", none, err)
	}

	testsupport.SeedCase(t, st, "A", "ORD-1", "packed")
	testsupport.SeedCase(t, st, "B", "ORD-1", "printed")
	ov, err := svc.GetOrderMovementOverview(ctx, "ORD-1", "WH-1")
	if err != nil {
		t.Fatalf("GetOrderMovementOverview failed: %v", err)
	}
	if ov.TotalCases != 2 || ov.StageCounts["packed"] != 1 || ov.Cumulative["printed"] != 2 {
		t.Fatalf("unexpected overview %#v", ov)
	}
	raw, err := json.Marshal(ov)
	if err != nil {
		t.Fatalf("marshal overview: %v", err)
	}
	if !strings.Contains(string(raw), `"completionScore":0.60`) || !strings.Contains(string(raw), `"completionPercent":30.0`) {
		t.Fatalf("expected numeric score fields, got %s", raw)
	}
}
