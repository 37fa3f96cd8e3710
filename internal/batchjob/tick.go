package batchjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caseintake/internal/cases"
	"caseintake/internal/lease"
	"caseintake/internal/logging"
	"caseintake/internal/receiving"
	"caseintake/internal/services"
)

// TickOutcome describes what one tick did.
type TickOutcome string

const (
	// TickIdle means the job was not queued or processing.
	TickIdle TickOutcome = "idle"
	// TickBusy means another worker holds the job or its lease.
	TickBusy TickOutcome = "busy"
	// TickProcessed means a slice ran and eligible cases remain.
	TickProcessed TickOutcome = "processed"
	TickCompleted TickOutcome = "completed"
	TickFailed    TickOutcome = "failed"
	// TickLost means ownership moved away mid-tick, usually through a reset.
	TickLost TickOutcome = "lost"
)

// TickResult reports one tick.
type TickResult struct {
	BatchID  string
	Outcome  TickOutcome
	Status   cases.JobStatus
	Handled  int
	// Resolved counts cases this tick moved to received_warehouse.
	Resolved int
	Summary  receiving.Summary
}

// Tick advances the batch by at most one slice. It is safe to call
// concurrently and repeatedly. Store errors before the slice runs are returned
// as transient and leave the job for the next tick.
func (c *Coordinator) Tick(ctx context.Context, batchID string) (TickResult, error) {
	result, err := c.tick(ctx, batchID)
	switch {
	case err != nil:
		c.metrics.RecordTick("error")
	default:
		c.metrics.RecordTick(string(result.Outcome))
	}
	return result, err
}

func (c *Coordinator) tick(ctx context.Context, batchID string) (TickResult, error) {
	logger := c.batchLogger(ctx, batchID)
	result := TickResult{BatchID: batchID}

	job, err := c.getJob(ctx, batchID)
	if err != nil {
		return result, err
	}
	if job == nil {
		if _, err := c.loadBatch(ctx, batchID); err != nil {
			return result, err
		}
		result.Outcome, result.Status = TickIdle, cases.JobIdle
		return result, nil
	}
	result.Status = job.Status
	if !job.Status.IsActive() {
		result.Outcome = TickIdle
		return result, nil
	}

	key := lease.Key(batchID)
	held, err := c.locker.Acquire(ctx, key)
	switch {
	case errors.Is(err, lease.ErrBusy):
		result.Outcome = TickBusy
		return result, nil
	case err != nil:
		logging.WarnWithContext(logger, "lease unavailable; proceeding with claim only", "lease_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check lock.redis_address"),
			logging.String(logging.FieldImpact, "duplicate slices possible across instances"),
		)
		held = nil
	}
	defer lease.ReleaseQuietly(context.WithoutCancel(ctx), logger, held, key)

	now := c.now()
	opCtx, cancel := c.opContext(ctx)
	claimed, err := c.store.ClaimBatchJob(opCtx, batchID, c.workerID, now, now.Add(-c.staleAfter))
	cancel()
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "batchjob", "claim", batchID, err)
	}
	if !claimed {
		result.Outcome = TickBusy
		return result, nil
	}
	if job.WorkerID != "" && job.WorkerID != c.workerID {
		logger.Info("took over stale batch job",
			logging.String("previous_worker", job.WorkerID),
			logging.String(logging.FieldEventType, "batch_takeover"),
		)
	}
	result.Status = cases.JobProcessing

	release := true
	defer func() {
		if release {
			c.release(ctx, logger, batchID)
		}
	}()

	opCtx, cancel = c.opContext(ctx)
	slice, err := c.store.ListEligibleBatchCases(opCtx, batchID, job.OrderID, c.sliceSize)
	cancel()
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "batchjob", "list eligible", batchID, err)
	}
	if len(slice) == 0 {
		release = false
		return c.complete(ctx, logger, result, job)
	}

	tokens := make([]string, len(slice))
	for i, mc := range slice {
		tokens[i] = mc.Code
	}
	results := c.classifier.ClassifyFrom(ctx, cases.SourceBatch, job.OrderID, job.WarehouseOrgID, tokens)
	summary := receiving.Summarize(results)
	result.Handled = summary.Total
	result.Summary = summary
	for _, o := range receiving.Outcomes() {
		c.metrics.RecordBatchResolved(string(o), summary.Count(o))
	}

	switch {
	case summary.AllErrors():
		release = false
		return c.fail(ctx, logger, result, job, failureMessage(summary, results))
	case summary.Resolved() == 0 && summary.Errors == 0:
		// Nothing in the slice can ever be received, so further ticks would spin.
		release = false
		return c.fail(ctx, logger, result, job, stuckMessage(summary))
	}

	// Only this tick's own transitions count; already_received cases were
	// counted by whichever tick received them.
	result.Resolved = summary.Received
	opCtx, cancel = c.opContext(ctx)
	owned, err := c.store.RecordBatchProgress(opCtx, batchID, c.workerID, result.Resolved, c.now())
	cancel()
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "batchjob", "record progress", batchID, err)
	}
	if !owned {
		release = false
		result.Outcome = TickLost
		logger.Info("batch job ownership lost mid-tick", logging.String(logging.FieldEventType, "batch_lost"))
		return result, nil
	}

	opCtx, cancel = c.opContext(ctx)
	remaining, err := c.store.ListEligibleBatchCases(opCtx, batchID, job.OrderID, 1)
	cancel()
	if err == nil && len(remaining) == 0 {
		release = false
		return c.complete(ctx, logger, result, job)
	}

	result.Outcome = TickProcessed
	logger.Debug("batch slice processed",
		logging.Int("handled", result.Handled),
		logging.Int("resolved", result.Resolved),
		logging.Int("errors", summary.Errors),
	)
	return result, nil
}

func (c *Coordinator) complete(ctx context.Context, logger *slog.Logger, result TickResult, job *cases.BatchJob) (TickResult, error) {
	opCtx, cancel := c.opContext(ctx)
	ok, err := c.store.CompleteBatchJob(opCtx, job.BatchID, c.workerID, c.now())
	cancel()
	if err != nil {
		c.release(ctx, logger, job.BatchID)
		return result, services.Wrap(services.ErrTransient, "batchjob", "complete", job.BatchID, err)
	}
	if !ok {
		result.Outcome = TickLost
		return result, nil
	}
	result.Outcome, result.Status = TickCompleted, cases.JobCompleted
	logger.Info("batch job completed",
		logging.String(logging.FieldOrderID, job.OrderID),
		logging.Int("progress_count", job.ProgressCount+result.Resolved),
		logging.String(logging.FieldEventType, "batch_completed"),
	)
	c.notify(ctx, logger, func(nctx context.Context) error {
		return c.notifier.NotifyBatchCompleted(nctx, job.BatchID, job.OrderID, job.ProgressCount+result.Resolved)
	})
	return result, nil
}

func (c *Coordinator) fail(ctx context.Context, logger *slog.Logger, result TickResult, job *cases.BatchJob, message string) (TickResult, error) {
	opCtx, cancel := c.opContext(ctx)
	ok, err := c.store.FailBatchJob(opCtx, result.BatchID, c.workerID, message, c.now())
	cancel()
	if err != nil {
		c.release(ctx, logger, result.BatchID)
		return result, services.Wrap(services.ErrTransient, "batchjob", "fail", result.BatchID, err)
	}
	if !ok {
		result.Outcome = TickLost
		return result, nil
	}
	result.Outcome, result.Status = TickFailed, cases.JobFailed
	logging.ErrorWithContext(logger, "batch job failed", "batch_failed",
		logging.String("last_error", message),
		logging.String(logging.FieldErrorHint, "fix the cause and reset or restart the batch"),
	)
	c.notify(ctx, logger, func(nctx context.Context) error {
		return c.notifier.NotifyBatchFailed(nctx, job.BatchID, job.OrderID, message)
	})
	return result, nil
}

func (c *Coordinator) notify(ctx context.Context, logger *slog.Logger, send func(context.Context) error) {
	if err := send(context.WithoutCancel(ctx)); err != nil {
		logging.WarnWithContext(logger, "batch notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "job state is unaffected"),
		)
	}
}

func (c *Coordinator) release(ctx context.Context, logger *slog.Logger, batchID string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()
	if _, err := c.store.ReleaseBatchJob(releaseCtx, batchID, c.workerID, c.now()); err != nil {
		logging.WarnWithContext(logger, "batch job release failed", "batch_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job becomes claimable once its heartbeat is stale"),
		)
	}
}

func stuckMessage(summary receiving.Summary) string {
	return fmt.Sprintf("%d cases cannot be received (not found %d, wrong order %d, invalid status %d, already shipped %d)",
		summary.Total, summary.NotFound, summary.WrongOrder, summary.InvalidStatus, summary.AlreadyShipped)
}

