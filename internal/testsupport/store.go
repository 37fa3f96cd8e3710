package testsupport

import (
	"context"
	"fmt"
	"testing"

	"caseintake/internal/cases"
	"caseintake/internal/config"
	"caseintake/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedCase inserts a master case with the given code, order, and raw status.
func SeedCase(t testing.TB, st *store.Store, code, orderID, rawStatus string) *cases.MasterCase {
	t.Helper()
	return SeedMasterCase(t, st, cases.MasterCase{Code: code, OrderID: orderID, RawStatus: rawStatus, ProductCount: 12})
}

// SeedMasterCase inserts a fully specified master case.
func SeedMasterCase(t testing.TB, st *store.Store, mc cases.MasterCase) *cases.MasterCase {
	t.Helper()

	inserted, err := st.InsertMasterCase(context.Background(), mc)
	if err != nil {
		t.Fatalf("store.InsertMasterCase: %v", err)
	}
	return inserted
}

// SeedBatch records a batch and inserts count cases for it with codes
// "<batchID>-001", "<batchID>-002", and so on.
func SeedBatch(t testing.TB, st *store.Store, batch cases.Batch, count int, rawStatus string) []*cases.MasterCase {
	t.Helper()

	if err := st.UpsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("store.UpsertBatch: %v", err)
	}
	out := make([]*cases.MasterCase, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, SeedMasterCase(t, st, cases.MasterCase{
			Code:          fmt.Sprintf("%s-%03d", batch.BatchID, i),
			OrderID:       batch.OrderID,
			BatchID:       batch.BatchID,
			RawStatus:     rawStatus,
			CaseNumber:    i,
			ExpectedUnits: 24,
		}))
	}
	return out
}

// MustGetCase reloads a case by identifier and fails the test when it is gone.
func MustGetCase(t testing.TB, st *store.Store, id int64) *cases.MasterCase {
	t.Helper()

	mc, err := st.GetMasterCase(context.Background(), id)
	if err != nil {
		t.Fatalf("store.GetMasterCase: %v", err)
	}
	if mc == nil {
		t.Fatalf("master case %d not found", id)
	}
	return mc
}
