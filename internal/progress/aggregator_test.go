package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"caseintake/internal/cases"
	"caseintake/internal/progress"
	"caseintake/internal/services"
	"caseintake/internal/testsupport"
)

func TestOverviewCountsAndScore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedMasterCase(t, st, cases.MasterCase{Code: "A", OrderID: "ORD-1", RawStatus: "pending", ExpectedUnits: 24})
	testsupport.SeedMasterCase(t, st, cases.MasterCase{Code: "B", OrderID: "ORD-1", RawStatus: "generated", ProductCount: 12})
	testsupport.SeedMasterCase(t, st, cases.MasterCase{Code: "C", OrderID: "ORD-1", RawStatus: "warehouse_packed", WarehouseOrgID: "WH-1", ProductCount: 10})
	testsupport.SeedMasterCase(t, st, cases.MasterCase{Code: "D", OrderID: "ORD-1", RawStatus: "opened", WarehouseOrgID: "WH-1", ProductCount: 10})
	testsupport.SeedMasterCase(t, st, cases.MasterCase{Code: "E", OrderID: "ORD-1", RawStatus: "received_warehouse", WarehouseOrgID: "WH-2", ProductCount: 99})
	testsupport.SeedMasterCase(t, st, cases.MasterCase{Code: "F", OrderID: "ORD-2", RawStatus: "opened", ProductCount: 99})

	agg := progress.NewAggregator(st, 0, nil)
	ov, err := agg.Overview(ctx, "ORD-1", "WH-1")
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if ov == nil {
		t.Fatal("expected overview")
	}
	if ov.TotalCases != 4 {
		t.Fatalf("expected 4 visible cases, got %d", ov.TotalCases)
	}
	if ov.TotalUnits != 24+12+10+10 {
		t.Fatalf("expected 56 units, got %d", ov.TotalUnits)
	}
	sum := 0
	for _, count := range ov.StageCounts {
		sum += count
	}
	if sum != ov.TotalCases {
		t.Fatalf("stage counts sum to %d, want %d", sum, ov.TotalCases)
	}
	if ov.StageCounts[cases.StatusPacked] != 1 || ov.StageCounts[cases.StatusReceivedWarehouse] != 1 {
		t.Fatalf("expected legacy aliases bucketed, got %#v", ov.StageCounts)
	}
	// 0 + .45 + .7 + 1
	if got := ov.CompletionScore.StringFixed(2); got != "2.15" {
		t.Fatalf("expected score 2.15, got %s", got)
	}
	if got := ov.CompletionPercent.StringFixed(1); got != "53.8" {
		t.Fatalf("expected 53.8%%, got %s", got)
	}
	if ov.Cumulative[cases.StatusPacked] != 3 || ov.Cumulative[cases.StatusPending] != 4 || ov.Cumulative[cases.StatusOpened] != 1 {
		t.Fatalf("unexpected cumulative counts %#v", ov.Cumulative)
	}
}

func TestOverviewNilWhenEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ov, err := progress.NewAggregator(st, 0, nil).Overview(context.Background(), "ORD-404", "")
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if ov != nil {
		t.Fatalf("expected nil overview, got %#v", ov)
	}
	if progress.Cumulative(nil) != nil {
		t.Fatal("expected nil cumulative for nil overview")
	}
}

func TestComputeBucketsUnknownAsPending(t *testing.T) {
	ov := progress.Compute("ORD-1", "", []cases.MasterCase{
		{RawStatus: "mystery"},
		{RawStatus: "Ready_To_Ship"},
	})
	if ov.StageCounts[cases.StatusPending] != 1 || ov.StageCounts[cases.StatusReadyToShip] != 1 {
		t.Fatalf("unexpected stage counts %#v", ov.StageCounts)
	}
	if len(ov.StageCounts) != len(cases.Stages()) {
		t.Fatalf("expected every stage present, got %d", len(ov.StageCounts))
	}
}

type brokenLister struct{}

func (brokenLister) ListMasterCases(context.Context, string, string) ([]cases.MasterCase, error) {
	return nil, errors.New("database is locked")
}

func TestOverviewWrapsStoreErrors(t *testing.T) {
	_, err := progress.NewAggregator(brokenLister{}, 0, nil).Overview(context.Background(), "ORD-1", "")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	_, err = progress.NewAggregator(brokenLister{}, 0, nil).Overview(context.Background(), "", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type blockingLister struct{}

func (blockingLister) ListMasterCases(ctx context.Context, _, _ string) ([]cases.MasterCase, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestOverviewBoundsStoreRead(t *testing.T) {
	start := time.Now()
	_, err := progress.NewAggregator(blockingLister{}, 20*time.Millisecond, nil).Overview(context.Background(), "ORD-1", "")
	if !errors.Is(err, services.ErrTimeout) || !services.IsRetryable(err) {
		t.Fatalf("expected retryable timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("overview ignored its timeout, took %s", elapsed)
	}
}
