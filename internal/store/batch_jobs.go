package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caseintake/internal/cases"
)

const jobColumns = "batch_id, order_id, warehouse_org_id, status, worker_id, heartbeat_at, progress_count, last_error, started_at, completed_at, created_at, updated_at"

func scanBatchJob(row scanner) (*cases.BatchJob, error) {
	var (
		job          cases.BatchJob
		status       string
		workerID     sql.NullString
		heartbeatRaw sql.NullString
		lastError    sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := row.Scan(
		&job.BatchID,
		&job.OrderID,
		&job.WarehouseOrgID,
		&status,
		&workerID,
		&heartbeatRaw,
		&job.ProgressCount,
		&lastError,
		&startedRaw,
		&completedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = cases.JobStatus(status)
	job.WorkerID = workerID.String
	job.LastError = lastError.String
	job.HeartbeatAt = parseNullTime(heartbeatRaw)
	job.StartedAt = parseNullTime(startedRaw)
	job.CompletedAt = parseNullTime(completedRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

// GetBatchJob returns the job for a batch or nil when none was started yet.
func (s *Store) GetBatchJob(ctx context.Context, batchID string) (*cases.BatchJob, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM batch_jobs WHERE batch_id = ?`, batchID)
	job, err := scanBatchJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch job: %w", err)
	}
	return job, nil
}

// StartBatchJob creates the job in queued state, or moves an idle, failed, or
// completed job back to queued with cleared progress and error. It reports
// false when the job is already queued or processing.
func (s *Store) StartBatchJob(ctx context.Context, batch cases.Batch, now time.Time) (bool, error) {
	stamp := formatTime(now)
	started, err := s.execAffected(
		ctx,
		`INSERT INTO batch_jobs (
            batch_id, order_id, warehouse_org_id, status, worker_id, heartbeat_at,
            progress_count, last_error, started_at, completed_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, NULL, NULL, 0, NULL, ?, NULL, ?, ?)
        ON CONFLICT(batch_id) DO UPDATE SET
            order_id = excluded.order_id,
            warehouse_org_id = excluded.warehouse_org_id,
            status = excluded.status,
            worker_id = NULL,
            heartbeat_at = NULL,
            progress_count = 0,
            last_error = NULL,
            started_at = excluded.started_at,
            completed_at = NULL,
            updated_at = excluded.updated_at
        WHERE batch_jobs.status IN (?, ?, ?)`,
		batch.BatchID,
		batch.OrderID,
		batch.WarehouseOrgID,
		cases.JobQueued,
		stamp,
		stamp,
		stamp,
		cases.JobIdle,
		cases.JobFailed,
		cases.JobCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("start batch job: %w", err)
	}
	return started, nil
}

// ClaimBatchJob takes ownership of an active job for workerID. The claim
// succeeds only when the job is unowned or its owner's heartbeat is older than
// staleBefore, so a live claim excludes every caller including workerID
// itself. A successful claim moves the job to processing and refreshes the
// heartbeat.
func (s *Store) ClaimBatchJob(ctx context.Context, batchID, workerID string, now, staleBefore time.Time) (bool, error) {
	stamp := formatTime(now)
	claimed, err := s.execAffected(
		ctx,
		`UPDATE batch_jobs
         SET worker_id = ?, heartbeat_at = ?, status = ?, updated_at = ?
         WHERE batch_id = ? AND status IN (?, ?)
           AND (worker_id IS NULL OR heartbeat_at IS NULL OR heartbeat_at < ?)`,
		workerID,
		stamp,
		cases.JobProcessing,
		stamp,
		batchID,
		cases.JobQueued,
		cases.JobProcessing,
		formatTime(staleBefore),
	)
	if err != nil {
		return false, fmt.Errorf("claim batch job: %w", err)
	}
	return claimed, nil
}

// RecordBatchProgress adds newly received cases to the job and refreshes its
// heartbeat. It reports false when workerID no longer owns the job.
func (s *Store) RecordBatchProgress(ctx context.Context, batchID, workerID string, delta int, now time.Time) (bool, error) {
	stamp := formatTime(now)
	ok, err := s.execAffected(
		ctx,
		`UPDATE batch_jobs
         SET progress_count = progress_count + ?, heartbeat_at = ?, updated_at = ?
         WHERE batch_id = ? AND worker_id = ? AND status = ?`,
		delta,
		stamp,
		stamp,
		batchID,
		workerID,
		cases.JobProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("record batch progress: %w", err)
	}
	return ok, nil
}

// CompleteBatchJob marks an owned job completed and drops the owner.
func (s *Store) CompleteBatchJob(ctx context.Context, batchID, workerID string, now time.Time) (bool, error) {
	stamp := formatTime(now)
	ok, err := s.execAffected(
		ctx,
		`UPDATE batch_jobs
         SET status = ?, worker_id = NULL, heartbeat_at = ?, completed_at = ?, updated_at = ?
         WHERE batch_id = ? AND worker_id = ? AND status = ?`,
		cases.JobCompleted,
		stamp,
		stamp,
		stamp,
		batchID,
		workerID,
		cases.JobProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("complete batch job: %w", err)
	}
	return ok, nil
}

// FailBatchJob marks an owned job failed with lastError and drops the owner.
func (s *Store) FailBatchJob(ctx context.Context, batchID, workerID, lastError string, now time.Time) (bool, error) {
	stamp := formatTime(now)
	ok, err := s.execAffected(
		ctx,
		`UPDATE batch_jobs
         SET status = ?, worker_id = NULL, last_error = ?, updated_at = ?
         WHERE batch_id = ? AND worker_id = ? AND status = ?`,
		cases.JobFailed,
		nullableString(lastError),
		stamp,
		batchID,
		workerID,
		cases.JobProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("fail batch job: %w", err)
	}
	return ok, nil
}

// ReleaseBatchJob drops workerID's claim while leaving the job processing, so
// the next tick can claim it without waiting for the heartbeat to go stale.
func (s *Store) ReleaseBatchJob(ctx context.Context, batchID, workerID string, now time.Time) (bool, error) {
	ok, err := s.execAffected(
		ctx,
		`UPDATE batch_jobs SET worker_id = NULL, updated_at = ?
         WHERE batch_id = ? AND worker_id = ? AND status = ?`,
		formatTime(now),
		batchID,
		workerID,
		cases.JobProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("release batch job: %w", err)
	}
	return ok, nil
}

// ResetBatchJob returns a job to idle from any state, clearing owner,
// heartbeat, and last error. Master cases are left untouched. It reports false
// when the batch has no job.
func (s *Store) ResetBatchJob(ctx context.Context, batchID string, now time.Time) (bool, error) {
	ok, err := s.execAffected(
		ctx,
		`UPDATE batch_jobs
         SET status = ?, worker_id = NULL, heartbeat_at = NULL, last_error = NULL,
             completed_at = NULL, updated_at = ?
         WHERE batch_id = ?`,
		cases.JobIdle,
		formatTime(now),
		batchID,
	)
	if err != nil {
		return false, fmt.Errorf("reset batch job: %w", err)
	}
	return ok, nil
}

// ListActiveBatchJobs returns queued and processing jobs, oldest update first.
func (s *Store) ListActiveBatchJobs(ctx context.Context) ([]*cases.BatchJob, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM batch_jobs WHERE status IN (?, ?) ORDER BY updated_at, batch_id`,
		cases.JobQueued,
		cases.JobProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("list active batch jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*cases.BatchJob
	for rows.Next() {
		job, err := scanBatchJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// JobStats returns a count of batch jobs grouped by status.
func (s *Store) JobStats(ctx context.Context) (map[cases.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM batch_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("batch job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[cases.JobStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[cases.JobStatus(status)] = count
	}
	return stats, rows.Err()
}
