package cases

import "time"

// JobStatus is the lifecycle state of a batch intake job.
type JobStatus string

const (
	JobIdle       JobStatus = "idle"
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsActive reports whether ticks should keep advancing the job.
func (s JobStatus) IsActive() bool {
	return s == JobQueued || s == JobProcessing
}

// CanStart reports whether Start may move the job to queued.
func (s JobStatus) CanStart() bool {
	return s == JobIdle || s == JobFailed || s == JobCompleted
}

// BatchJob is the per-batch bookkeeping record advanced by ticks.
// Resetting it never touches the master cases it already received.
type BatchJob struct {
	BatchID        string
	OrderID        string
	WarehouseOrgID string
	Status         JobStatus
	WorkerID       string
	HeartbeatAt    *time.Time
	ProgressCount  int
	LastError      string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsStale reports whether a processing job has stopped heartbeating.
// A processing job with no heartbeat at all is stale.
func (j BatchJob) IsStale(now time.Time, after time.Duration) bool {
	if j.Status != JobProcessing {
		return false
	}
	if j.HeartbeatAt == nil {
		return true
	}
	return now.Sub(*j.HeartbeatAt) > after
}
