package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"caseintake/internal/cases"
)

const caseColumns = "id, code, order_id, batch_id, warehouse_org_id, status, case_number, product_count, expected_units, received_at, created_at, updated_at"

// Transition describes one compare-and-set on a master case status.
type Transition struct {
	CaseID         int64
	Expected       []string
	Next           cases.Status
	WarehouseOrgID string
	At             time.Time
	Source         cases.MovementSource
}

func scanMasterCase(row scanner) (*cases.MasterCase, error) {
	var (
		mc          cases.MasterCase
		batchID     sql.NullString
		receivedRaw sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := row.Scan(
		&mc.ID,
		&mc.Code,
		&mc.OrderID,
		&batchID,
		&mc.WarehouseOrgID,
		&mc.RawStatus,
		&mc.CaseNumber,
		&mc.ProductCount,
		&mc.ExpectedUnits,
		&receivedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	mc.BatchID = batchID.String
	mc.ReceivedAt = parseNullTime(receivedRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		mc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		mc.UpdatedAt = updated
	}
	mc.Resolve()
	return &mc, nil
}

func collectCases(rows *sql.Rows) ([]cases.MasterCase, error) {
	defer rows.Close()
	var out []cases.MasterCase
	for rows.Next() {
		mc, err := scanMasterCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *mc)
	}
	return out, rows.Err()
}

// InsertMasterCase creates a case and returns it with its assigned identifier.
func (s *Store) InsertMasterCase(ctx context.Context, mc cases.MasterCase) (*cases.MasterCase, error) {
	if mc.Code == "" || mc.OrderID == "" {
		return nil, errors.New("master case requires code and order id")
	}
	if mc.RawStatus == "" {
		mc.RawStatus = string(mc.Status)
	}
	if mc.RawStatus == "" {
		mc.RawStatus = string(cases.StatusPending)
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO master_cases (
            code, order_id, batch_id, warehouse_org_id, status, case_number,
            product_count, expected_units, received_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mc.Code,
		mc.OrderID,
		nullableString(mc.BatchID),
		mc.WarehouseOrgID,
		mc.RawStatus,
		mc.CaseNumber,
		mc.ProductCount,
		mc.ExpectedUnits,
		nullableTime(mc.ReceivedAt),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert master case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMasterCase(ctx, id)
}

// GetMasterCase fetches a case by identifier. It returns nil when absent.
func (s *Store) GetMasterCase(ctx context.Context, id int64) (*cases.MasterCase, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+caseColumns+` FROM master_cases WHERE id = ?`, id)
	mc, err := scanMasterCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master case: %w", err)
	}
	return mc, nil
}

// GetMasterCaseByCode looks a case up by its code. Codes are unique per order,
// so when several orders share a code the one belonging to preferOrderID wins.
// It returns nil when no case carries the code.
func (s *Store) GetMasterCaseByCode(ctx context.Context, code, preferOrderID string) (*cases.MasterCase, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+caseColumns+` FROM master_cases
         WHERE code = ?
         ORDER BY CASE WHEN order_id = ? THEN 0 ELSE 1 END, id
         LIMIT 1`,
		code,
		preferOrderID,
	)
	mc, err := scanMasterCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master case by code: %w", err)
	}
	return mc, nil
}

// CASMasterCaseStatus applies the transition only when the stored status is
// still one of the expected values. It reports false, without error, when the
// row moved on concurrently. A successful receive also appends a movement row
// in the same transaction.
func (s *Store) CASMasterCaseStatus(ctx context.Context, tr Transition) (bool, error) {
	if len(tr.Expected) == 0 {
		return false, errors.New("transition requires at least one expected status")
	}
	at := tr.At
	if at.IsZero() {
		at = time.Now()
	}
	stamp := formatTime(at)

	var applied bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		applied = false
		row := tx.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM master_cases WHERE id = ?`, tr.CaseID)
		current, err := scanMasterCase(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !slices.Contains(tr.Expected, current.RawStatus) {
			return nil
		}

		var receivedAt any
		if tr.Next == cases.StatusReceivedWarehouse {
			receivedAt = stamp
		}
		res, err := tx.ExecContext(
			ctx,
			`UPDATE master_cases
             SET status = ?, warehouse_org_id = ?, received_at = COALESCE(?, received_at), updated_at = ?
             WHERE id = ? AND status IN (`+makePlaceholders(len(tr.Expected))+`)`,
			append([]any{string(tr.Next), tr.WarehouseOrgID, receivedAt, stamp, tr.CaseID}, stringArgs(tr.Expected)...)...,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}

		source := tr.Source
		if source == "" {
			source = cases.SourceManual
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO case_movements (
                case_id, code, order_id, warehouse_org_id, from_status, to_status, source, moved_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			current.ID,
			current.Code,
			current.OrderID,
			tr.WarehouseOrgID,
			current.RawStatus,
			string(tr.Next),
			string(source),
			stamp,
		); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("cas master case status: %w", err)
	}
	return applied, nil
}

// ListMasterCases returns the cases of an order visible to a warehouse: the
// ones it received plus the ones no warehouse has received yet. An empty
// warehouse returns every case of the order.
func (s *Store) ListMasterCases(ctx context.Context, orderID, warehouseOrgID string) ([]cases.MasterCase, error) {
	query := `SELECT ` + caseColumns + ` FROM master_cases WHERE order_id = ?`
	args := []any{orderID}
	if warehouseOrgID != "" {
		query += ` AND (warehouse_org_id = ? OR warehouse_org_id = '')`
		args = append(args, warehouseOrgID)
	}
	query += ` ORDER BY case_number, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list master cases: %w", err)
	}
	out, err := collectCases(rows)
	if err != nil {
		return nil, fmt.Errorf("list master cases: %w", err)
	}
	return out, nil
}

// ListEligibleBatchCases returns up to limit cases of the batch that still
// await warehouse receipt, in case-number order.
func (s *Store) ListEligibleBatchCases(ctx context.Context, batchID, orderID string, limit int) ([]cases.MasterCase, error) {
	eligible := cases.ReceiveEligibleRaw()
	args := append([]any{batchID, orderID}, stringArgs(eligible)...)
	query := `SELECT ` + caseColumns + ` FROM master_cases
        WHERE batch_id = ? AND order_id = ? AND lower(trim(status)) IN (` + makePlaceholders(len(eligible)) + `)
        ORDER BY case_number, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eligible batch cases: %w", err)
	}
	out, err := collectCases(rows)
	if err != nil {
		return nil, fmt.Errorf("list eligible batch cases: %w", err)
	}
	return out, nil
}
