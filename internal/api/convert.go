package api

import (
	"encoding/json"
	"time"

	"caseintake/internal/batchjob"
	"caseintake/internal/cases"
	"caseintake/internal/progress"
	"caseintake/internal/receiving"
)

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromMasterCase converts a case snapshot.
func FromMasterCase(mc *cases.MasterCase) *MasterCase {
	if mc == nil {
		return nil
	}
	return &MasterCase{
		ID:             mc.ID,
		Code:           mc.Code,
		OrderID:        mc.OrderID,
		BatchID:        mc.BatchID,
		WarehouseOrgID: mc.WarehouseOrgID,
		Status:         string(mc.Status),
		CaseNumber:     mc.CaseNumber,
		ProductCount:   mc.Units(),
		ReceivedAt:     formatTime(mc.ReceivedAt),
	}
}

// FromResults converts classifier results, preserving order.
func FromResults(results []receiving.Result) []ReceiveResult {
	out := make([]ReceiveResult, len(results))
	for i, r := range results {
		dto := ReceiveResult{
			Index:   r.Index,
			Input:   r.Input,
			Code:    r.Code,
			Outcome: string(r.Outcome),
			Message: r.Message,
			Case:    FromMasterCase(r.Case),
		}
		if r.DuplicateOf >= 0 {
			first := r.DuplicateOf
			dto.DuplicateOf = &first
		}
		out[i] = dto
	}
	return out
}

// FromJobView converts a coordinator job view.
func FromJobView(v batchjob.JobView) BatchStatus {
	return BatchStatus{
		BatchID:        v.BatchID,
		OrderID:        v.OrderID,
		WarehouseOrgID: v.WarehouseOrgID,
		Status:         string(v.Status),
		HeartbeatAt:    formatTime(v.HeartbeatAt),
		ProgressCount:  v.ProgressCount,
		IsStale:        v.IsStale,
		LastError:      v.LastError,
		WorkerID:       v.WorkerID,
		StartedAt:      formatTime(v.StartedAt),
		CompletedAt:    formatTime(v.CompletedAt),
	}
}

// FromTickResult converts a tick report.
func FromTickResult(r batchjob.TickResult) TickResponse {
	return TickResponse{
		BatchID:  r.BatchID,
		Outcome:  string(r.Outcome),
		Status:   string(r.Status),
		Handled:  r.Handled,
		Resolved: r.Resolved,
		Summary:  r.Summary,
	}
}

// FromOverview converts an overview. A nil overview stays nil.
func FromOverview(ov *progress.Overview) *Overview {
	if ov == nil {
		return nil
	}
	stages := cases.Stages()
	dto := &Overview{
		OrderID:           ov.OrderID,
		WarehouseOrgID:    ov.WarehouseOrgID,
		TotalCases:        ov.TotalCases,
		TotalUnits:        ov.TotalUnits,
		Stages:            make([]string, 0, len(stages)),
		StageCounts:       make(map[string]int, len(stages)),
		Cumulative:        make(map[string]int, len(stages)),
		CompletionScore:   json.Number(ov.CompletionScore.StringFixed(2)),
		CompletionPercent: json.Number(ov.CompletionPercent.StringFixed(1)),
	}
	for _, stage := range stages {
		dto.Stages = append(dto.Stages, string(stage))
		dto.StageCounts[string(stage)] = ov.StageCounts[stage]
		dto.Cumulative[string(stage)] = ov.Cumulative[stage]
	}
	return dto
}
