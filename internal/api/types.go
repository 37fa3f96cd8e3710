package api

import (
	"encoding/json"

	"caseintake/internal/receiving"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ReceiveRequest is one inline receive submission. Codes and Raw may be
// combined; Raw is split and normalized the same way pasted text is.
type ReceiveRequest struct {
	OrderID        string   `json:"orderId" validate:"required,max=128,ident"`
	WarehouseOrgID string   `json:"warehouseOrgId" validate:"required,max=128,ident"`
	Codes          []string `json:"codes,omitempty" validate:"required_without=Raw"`
	Raw            string   `json:"raw,omitempty" validate:"required_without=Codes"`
}

// ReceiveResponse carries one result per submitted token, in order.
type ReceiveResponse struct {
	Results []ReceiveResult   `json:"results"`
	Summary receiving.Summary `json:"summary"`
	Parse   ParseStats        `json:"parse"`
}

// ParseStats reports what free-text splitting dropped or saw twice.
type ParseStats struct {
	Tokens     int `json:"tokens"`
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// ReceiveResult is the classification of one token.
type ReceiveResult struct {
	Index       int         `json:"index"`
	Input       string      `json:"input"`
	Code        string      `json:"code"`
	Outcome     string      `json:"outcome"`
	Message     string      `json:"message"`
	DuplicateOf *int        `json:"duplicateOf,omitempty"`
	Case        *MasterCase `json:"case,omitempty"`
}

// MasterCase is the transport form of a case snapshot.
type MasterCase struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	OrderID        string `json:"orderId"`
	BatchID        string `json:"batchId,omitempty"`
	WarehouseOrgID string `json:"warehouseOrgId"`
	Status         string `json:"status"`
	CaseNumber     int    `json:"caseNumber"`
	ProductCount   int    `json:"productCount"`
	ReceivedAt     string `json:"receivedAt,omitempty"`
}

// StartResponse reports a start request.
type StartResponse struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// TickResponse reports one tick.
type TickResponse struct {
	BatchID  string            `json:"batchId"`
	Outcome  string            `json:"outcome"`
	Status   string            `json:"status"`
	Handled  int               `json:"handled"`
	Resolved int               `json:"resolved"`
	Summary  receiving.Summary `json:"summary"`
}

// BatchStatus is the polled job view.
type BatchStatus struct {
	BatchID        string `json:"batchId"`
	OrderID        string `json:"orderId,omitempty"`
	WarehouseOrgID string `json:"warehouseOrgId,omitempty"`
	Status         string `json:"status"`
	HeartbeatAt    string `json:"heartbeatAt,omitempty"`
	ProgressCount  int    `json:"progressCount"`
	IsStale        bool   `json:"isStale"`
	LastError      string `json:"lastError,omitempty"`
	WorkerID       string `json:"workerId,omitempty"`
	StartedAt      string `json:"startedAt,omitempty"`
	CompletedAt    string `json:"completedAt,omitempty"`
}

// ResetResponse reports a reset.
type ResetResponse struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
}

// Overview is the transport form of an order movement overview.
type Overview struct {
	OrderID           string         `json:"orderId"`
	WarehouseOrgID    string         `json:"warehouseOrgId,omitempty"`
	TotalCases        int            `json:"totalCases"`
	TotalUnits        int            `json:"totalUnits"`
	Stages            []string       `json:"stages"`
	StageCounts       map[string]int `json:"stageCounts"`
	Cumulative        map[string]int `json:"cumulative"`
	CompletionScore   json.Number    `json:"completionScore"`
	CompletionPercent json.Number    `json:"completionPercent"`
}

// ErrorResponse is the body of every non-2xx HTTP reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// DaemonStatus is the daemon runtime view served at /api/status.
type DaemonStatus struct {
	Running          bool           `json:"running"`
	PID              int            `json:"pid"`
	WorkerID         string         `json:"workerId"`
	DatabasePath     string         `json:"databasePath"`
	LockFilePath     string         `json:"lockFilePath"`
	SchedulerRunning bool           `json:"schedulerRunning"`
	LastSchedulerRun string         `json:"lastSchedulerRun,omitempty"`
	LastError        string         `json:"lastError,omitempty"`
	ActiveBatches    []string       `json:"activeBatches"`
	JobStats         map[string]int `json:"jobStats"`
	Checks           []CheckResult  `json:"checks,omitempty"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}
