package main

import (
	"encoding/json"
	"testing"

	"caseintake/internal/api"
)

const sampleCSV = `code,order_id,batch_id,warehouse_org_id,status,case_number,product_count,expected_units
MC-1,ORD-1,,,packed,1,12,12
MC-2,ORD-1,,,opened,2,12,12
MC-3,ORD-2,,,packed,1,12,12
B-001,ORD-1,B-1,,packed,3,0,24
B-002,ORD-1,B-1,WH-1,ready_to_ship,4,0,24
`

func TestImportAndReceive(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := writeCSV(t, env.baseDir, sampleCSV)

	out, _, err := runCLI(t, []string{"import", csvPath}, env.configPath, "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Imported 5 master case(s) across 1 batch(es)")

	out, _, err = runCLI(t, []string{"receive", "--order", "ORD-1", "--warehouse", "WH-1", "--json", "MC-1", "MC-3", "MC-1", "MC-404"}, env.configPath, "")
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var resp api.ReceiveResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode receive output: %v", err)
	}
	want := []string{"received", "wrong_order", "duplicate_request", "not_found"}
	if len(resp.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(resp.Results))
	}
	for i, outcome := range want {
		if resp.Results[i].Outcome != outcome {
			t.Fatalf("result %d: expected %s, got %s", i, outcome, resp.Results[i].Outcome)
		}
	}

	out, _, err = runCLI(t, []string{"receive", "--order", "ORD-1", "--warehouse", "WH-1"}, env.configPath, "MC-1\nhttps://scan.example/track/MC-2\n")
	if err != nil {
		t.Fatalf("receive from stdin: %v", err)
	}
	requireContains(t, out, "already_received")
	requireContains(t, out, "already_shipped")
	requireContains(t, out, "Total 2:")
}

func TestReceiveRequiresOrder(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"receive", "--warehouse", "WH-1", "MC-1"}, env.configPath, ""); err == nil {
		t.Fatal("expected missing --order to fail")
	}
}

func TestBatchWatchCompletes(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := writeCSV(t, env.baseDir, sampleCSV)
	if _, _, err := runCLI(t, []string{"import", csvPath}, env.configPath, ""); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, _, err := runCLI(t, []string{"batch", "status", "B-1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("batch status: %v", err)
	}
	requireContains(t, out, "idle")

	out, _, err = runCLI(t, []string{"batch", "watch", "--start", "B-1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("batch watch: %v", err)
	}
	requireContains(t, out, "Batch B-1 completed")

	out, _, err = runCLI(t, []string{"batch", "status", "--json", "B-1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("batch status: %v", err)
	}
	var status api.BatchStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != "completed" || status.ProgressCount != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	out, _, err = runCLI(t, []string{"batch", "reset", "B-1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("batch reset: %v", err)
	}
	requireContains(t, out, "reset to idle")

	if _, _, err := runCLI(t, []string{"batch", "start", "B-404"}, env.configPath, ""); err == nil {
		t.Fatal("expected unknown batch to fail")
	}
}

func TestOverviewCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"overview", "ORD-1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	requireContains(t, out, "No master cases found")

	csvPath := writeCSV(t, env.baseDir, sampleCSV)
	if _, _, err := runCLI(t, []string{"import", csvPath}, env.configPath, ""); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, _, err = runCLI(t, []string{"overview", "--json", "ORD-1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	var ov api.Overview
	if err := json.Unmarshal([]byte(out), &ov); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if ov.TotalCases != 4 || ov.TotalUnits != 72 {
		t.Fatalf("unexpected totals: %+v", ov)
	}
	if ov.CompletionScore.String() != "2.35" {
		t.Fatalf("expected score 2.35, got %s", ov.CompletionScore)
	}
}

func TestHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"health"}, env.configPath, "")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "ok")
}

func TestBatchStartRequiresWarehouse(t *testing.T) {
	env := setupCLITestEnv(t)
	csvPath := writeCSV(t, env.baseDir, "code,order_id,batch_id,status\nC-001,ORD-9,B-9,packed\nC-002,ORD-9,B-9,packed\n")
	if _, _, err := runCLI(t, []string{"import", csvPath}, env.configPath, ""); err != nil {
		t.Fatalf("import: %v", err)
	}

	_, _, err := runCLI(t, []string{"batch", "start", "B-9"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected batch without a warehouse org to be rejected")
	}
	requireContains(t, err.Error(), "no warehouse org")
}
