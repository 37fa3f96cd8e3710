package store

import (
	"context"
	"fmt"

	"caseintake/internal/cases"
)

// ListMovements returns the movement log of an order, oldest first.
func (s *Store) ListMovements(ctx context.Context, orderID string) ([]cases.Movement, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, case_id, code, order_id, warehouse_org_id, from_status, to_status, source, moved_at
         FROM case_movements WHERE order_id = ? ORDER BY moved_at, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []cases.Movement
	for rows.Next() {
		var (
			m        cases.Movement
			toStatus string
			source   string
			movedRaw string
		)
		if err := rows.Scan(&m.ID, &m.CaseID, &m.Code, &m.OrderID, &m.WarehouseOrgID, &m.FromStatus, &toStatus, &source, &movedRaw); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.ToStatus = cases.Status(toStatus)
		m.Source = cases.MovementSource(source)
		if moved, err := parseTimeString(movedRaw); err == nil {
			m.MovedAt = moved
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
