package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caseintake/internal/cases"
)

// UpsertBatch records a manufacturing batch and its owning order.
func (s *Store) UpsertBatch(ctx context.Context, batch cases.Batch) error {
	if batch.BatchID == "" || batch.OrderID == "" {
		return errors.New("batch requires batch id and order id")
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO batches (batch_id, order_id, warehouse_org_id, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(batch_id) DO UPDATE SET
             order_id = excluded.order_id,
             warehouse_org_id = excluded.warehouse_org_id`,
		batch.BatchID,
		batch.OrderID,
		batch.WarehouseOrgID,
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// GetBatch returns the batch or nil when it is unknown.
func (s *Store) GetBatch(ctx context.Context, batchID string) (*cases.Batch, error) {
	var (
		batch      cases.Batch
		createdRaw string
	)
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT batch_id, order_id, warehouse_org_id, created_at FROM batches WHERE batch_id = ?`,
		batchID,
	).Scan(&batch.BatchID, &batch.OrderID, &batch.WarehouseOrgID, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		batch.CreatedAt = created
	}
	return &batch, nil
}
