package cases

import "time"

// MasterCase is a QR-coded case aggregating product units of one order.
// RawStatus keeps the stored value; Status is its canonical resolution.
type MasterCase struct {
	ID             int64
	Code           string
	OrderID        string
	BatchID        string
	WarehouseOrgID string
	RawStatus      string
	Status         Status
	CaseNumber     int
	ProductCount   int
	ExpectedUnits  int
	ReceivedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Units returns the actual unit count, falling back to the expected count.
func (c MasterCase) Units() int {
	if c.ProductCount > 0 {
		return c.ProductCount
	}
	return c.ExpectedUnits
}

// Resolve fills Status from RawStatus. Unknown values resolve to pending.
func (c *MasterCase) Resolve() {
	status, ok := Canonical(c.RawStatus)
	if !ok {
		status = StatusPending
	}
	c.Status = status
}

// Batch is a manufacturing lot of master cases processed together for intake.
type Batch struct {
	BatchID        string
	OrderID        string
	WarehouseOrgID string
	CreatedAt      time.Time
}

// MovementSource records which path produced a movement.
type MovementSource string

const (
	SourceManual MovementSource = "manual"
	SourceBatch  MovementSource = "batch"
)

// Movement is the append-only log row written with every successful receive.
type Movement struct {
	ID             int64
	CaseID         int64
	Code           string
	OrderID        string
	WarehouseOrgID string
	FromStatus     string
	ToStatus       Status
	Source         MovementSource
	MovedAt        time.Time
}
