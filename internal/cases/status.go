package cases

import "strings"

// Status is a canonical pipeline stage for a master case.
type Status string

const (
	StatusPending            Status = "pending"
	StatusPrinted            Status = "printed"
	StatusPacked             Status = "packed"
	StatusReadyToShip        Status = "ready_to_ship"
	StatusReceivedWarehouse  Status = "received_warehouse"
	StatusShippedDistributor Status = "shipped_distributor"
	StatusOpened             Status = "opened"
)

// Legacy stored values that predate the current status vocabulary.
const (
	LegacyGenerated       = "generated"
	LegacyWarehousePacked = "warehouse_packed"
)

var stageOrder = []Status{
	StatusPending,
	StatusPrinted,
	StatusPacked,
	StatusReadyToShip,
	StatusReceivedWarehouse,
	StatusShippedDistributor,
	StatusOpened,
}

var stageIndex = func() map[Status]int {
	idx := make(map[Status]int, len(stageOrder))
	for i, s := range stageOrder {
		idx[s] = i
	}
	return idx
}()

// aliases maps every accepted stored value to its canonical stage.
var aliases = map[string]Status{
	string(StatusPending):            StatusPending,
	string(StatusPrinted):            StatusPrinted,
	string(StatusPacked):             StatusPacked,
	string(StatusReadyToShip):        StatusReadyToShip,
	string(StatusReceivedWarehouse):  StatusReceivedWarehouse,
	string(StatusShippedDistributor): StatusShippedDistributor,
	string(StatusOpened):             StatusOpened,
	LegacyGenerated:                  StatusPacked,
	LegacyWarehousePacked:            StatusReceivedWarehouse,
}

// weights are expressed in hundredths to keep the table exact.
var weights = map[Status]int64{
	StatusPending:            0,
	StatusPrinted:            15,
	StatusPacked:             45,
	StatusReadyToShip:        45,
	StatusReceivedWarehouse:  70,
	StatusShippedDistributor: 90,
	StatusOpened:             100,
}

// Stages returns the pipeline stages in order.
func Stages() []Status {
	cp := make([]Status, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// Canonical resolves a stored status value through the alias table.
// The boolean is false for values the pipeline does not know.
func Canonical(raw string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", false
	}
	status, ok := aliases[normalized]
	return status, ok
}

// RawValues returns every stored value that resolves to one of the given stages.
// The result is sorted in stage order, canonical name before aliases.
func RawValues(stages ...Status) []string {
	want := make(map[Status]struct{}, len(stages))
	for _, s := range stages {
		want[s] = struct{}{}
	}
	var out []string
	for _, s := range stageOrder {
		if _, ok := want[s]; !ok {
			continue
		}
		out = append(out, string(s))
		for alias, target := range aliases {
			if target == s && alias != string(s) {
				out = append(out, alias)
			}
		}
	}
	return out
}

// Index returns the position of the stage in pipeline order, or -1.
func (s Status) Index() int {
	if idx, ok := stageIndex[s]; ok {
		return idx
	}
	return -1
}

// Weight returns the completion weight of the stage in hundredths.
func (s Status) Weight() int64 {
	return weights[s]
}

// Before reports whether s comes strictly before other in the pipeline.
func (s Status) Before(other Status) bool {
	a, b := s.Index(), other.Index()
	return a >= 0 && b >= 0 && a < b
}

// IsReceiveEligible reports whether a case in this stage may be received into a warehouse.
func (s Status) IsReceiveEligible() bool {
	return s == StatusPacked || s == StatusReadyToShip
}

// IsPastReceive reports whether the case already moved beyond warehouse receipt.
func (s Status) IsPastReceive() bool {
	return StatusReceivedWarehouse.Before(s)
}

// Label returns a short human label for tables.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPrinted:
		return "Printed"
	case StatusPacked:
		return "Packed"
	case StatusReadyToShip:
		return "Ready to ship"
	case StatusReceivedWarehouse:
		return "Received (warehouse)"
	case StatusShippedDistributor:
		return "Shipped (distributor)"
	case StatusOpened:
		return "Opened"
	default:
		return string(s)
	}
}

// ReceiveEligibleRaw lists the stored values a receive CAS may transition from.
func ReceiveEligibleRaw() []string {
	return RawValues(StatusPacked, StatusReadyToShip)
}
