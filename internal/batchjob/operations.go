package batchjob

import (
	"context"
	"strings"
	"time"

	"caseintake/internal/cases"
	"caseintake/internal/logging"
	"caseintake/internal/services"
)

// StartResult reports what Start did.
type StartResult struct {
	BatchID string
	Status  cases.JobStatus
	Started bool
	Message string
}

// JobView is the externally visible job state, including derived staleness.
type JobView struct {
	BatchID        string
	OrderID        string
	WarehouseOrgID string
	Status         cases.JobStatus
	WorkerID       string
	HeartbeatAt    *time.Time
	ProgressCount  int
	IsStale        bool
	LastError      string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time
}

// Start queues the batch's job from idle, failed, or completed. A job that is
// already queued or processing is left alone and reported as in progress.
// Batches without a warehouse org are rejected as invalid.
func (c *Coordinator) Start(ctx context.Context, batchID string) (StartResult, error) {
	logger := c.batchLogger(ctx, batchID)
	batch, err := c.loadBatch(ctx, batchID)
	if err != nil {
		return StartResult{}, err
	}
	if strings.TrimSpace(batch.WarehouseOrgID) == "" {
		return StartResult{}, services.Wrap(services.ErrValidation, "batchjob", "start", batchID+": batch has no warehouse org", nil)
	}

	opCtx, cancel := c.opContext(ctx)
	started, err := c.store.StartBatchJob(opCtx, *batch, c.now())
	cancel()
	if err != nil {
		return StartResult{}, services.Wrap(services.ErrTransient, "batchjob", "start", batchID, err)
	}
	if started {
		logger.Info("batch job queued",
			logging.String(logging.FieldOrderID, batch.OrderID),
			logging.String(logging.FieldEventType, "batch_queued"),
		)
		return StartResult{BatchID: batchID, Status: cases.JobQueued, Started: true, Message: "queued"}, nil
	}

	job, err := c.getJob(ctx, batchID)
	if err != nil {
		return StartResult{}, err
	}
	status := cases.JobQueued
	if job != nil {
		status = job.Status
	}
	return StartResult{BatchID: batchID, Status: status, Message: "already in progress"}, nil
}

// Reset returns the job to idle from any status. Cases already received stay
// received. Resetting a batch that never started is a no-op.
func (c *Coordinator) Reset(ctx context.Context, batchID string) (cases.JobStatus, error) {
	opCtx, cancel := c.opContext(ctx)
	ok, err := c.store.ResetBatchJob(opCtx, batchID, c.now())
	cancel()
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "batchjob", "reset", batchID, err)
	}
	if !ok {
		if _, err := c.loadBatch(ctx, batchID); err != nil {
			return "", err
		}
		return cases.JobIdle, nil
	}
	c.batchLogger(ctx, batchID).Info("batch job reset", logging.String(logging.FieldEventType, "batch_reset"))
	return cases.JobIdle, nil
}

// Status returns the job view. A batch that was never started reports idle.
func (c *Coordinator) Status(ctx context.Context, batchID string) (JobView, error) {
	job, err := c.getJob(ctx, batchID)
	if err != nil {
		return JobView{}, err
	}
	if job == nil {
		batch, err := c.loadBatch(ctx, batchID)
		if err != nil {
			return JobView{}, err
		}
		return JobView{
			BatchID:        batch.BatchID,
			OrderID:        batch.OrderID,
			WarehouseOrgID: batch.WarehouseOrgID,
			Status:         cases.JobIdle,
		}, nil
	}
	return c.view(job), nil
}

// ActiveBatchIDs lists batches whose jobs are queued or processing.
func (c *Coordinator) ActiveBatchIDs(ctx context.Context) ([]string, error) {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	jobs, err := c.store.ListActiveBatchJobs(opCtx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "batchjob", "list active", "", err)
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.BatchID)
	}
	return ids, nil
}

func (c *Coordinator) view(job *cases.BatchJob) JobView {
	return JobView{
		BatchID:        job.BatchID,
		OrderID:        job.OrderID,
		WarehouseOrgID: job.WarehouseOrgID,
		Status:         job.Status,
		WorkerID:       job.WorkerID,
		HeartbeatAt:    job.HeartbeatAt,
		ProgressCount:  job.ProgressCount,
		IsStale:        job.IsStale(c.now(), c.staleAfter),
		LastError:      job.LastError,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

func (c *Coordinator) loadBatch(ctx context.Context, batchID string) (*cases.Batch, error) {
	if batchID == "" {
		return nil, services.Wrap(services.ErrValidation, "batchjob", "load batch", "batch id is required", nil)
	}
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	batch, err := c.store.GetBatch(opCtx, batchID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "batchjob", "load batch", batchID, err)
	}
	if batch == nil {
		return nil, services.Wrap(services.ErrNotFound, "batchjob", "load batch", "unknown batch "+batchID, nil)
	}
	return batch, nil
}

func (c *Coordinator) getJob(ctx context.Context, batchID string) (*cases.BatchJob, error) {
	if batchID == "" {
		return nil, services.Wrap(services.ErrValidation, "batchjob", "load job", "batch id is required", nil)
	}
	opCtx, cancel := c.opContext(ctx)
	defer cancel()
	job, err := c.store.GetBatchJob(opCtx, batchID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "batchjob", "load job", batchID, err)
	}
	return job, nil
}
