// Package progress derives per-order pipeline overviews from current case state.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"caseintake/internal/cases"
	"caseintake/internal/config"
	"caseintake/internal/logging"
	"caseintake/internal/services"
)

// Lister is the read surface the aggregator consumes.
type Lister interface {
	ListMasterCases(ctx context.Context, orderID, warehouseOrgID string) ([]cases.MasterCase, error)
}

// Overview is a point-in-time snapshot of an order's movement through the pipeline.
// Every stage has an entry in StageCounts, and the counts sum to TotalCases.
type Overview struct {
	OrderID           string
	WarehouseOrgID    string
	TotalCases        int
	TotalUnits        int
	StageCounts       map[cases.Status]int
	CompletionScore   decimal.Decimal
	CompletionPercent decimal.Decimal
	Cumulative        map[cases.Status]int
}

// Aggregator recomputes overviews on demand. It keeps no state between calls.
type Aggregator struct {
	cases   Lister
	timeout time.Duration
	logger  *slog.Logger
}

// NewAggregator constructs an aggregator over the given lister. Each read is
// bounded by timeout; zero uses the configured default.
func NewAggregator(lister Lister, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = config.Default().OperationTimeout()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{cases: lister, timeout: timeout, logger: logging.NewComponentLogger(logger, "progress")}
}

// Overview reads the order's cases visible to the warehouse and summarizes
// them. It returns nil when the order has no cases.
func (a *Aggregator) Overview(ctx context.Context, orderID, warehouseOrgID string) (*Overview, error) {
	if orderID == "" {
		return nil, services.Wrap(services.ErrValidation, "progress", "overview", "order id is required", nil)
	}
	opCtx, cancel := context.WithTimeout(ctx, a.timeout)
	list, err := a.cases.ListMasterCases(opCtx, orderID, warehouseOrgID)
	cancel()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, services.Wrap(services.ErrTimeout, "progress", "list cases", fmt.Sprintf("order %s", orderID), err)
	case err != nil:
		return nil, services.Wrap(services.ErrTransient, "progress", "list cases", fmt.Sprintf("order %s", orderID), err)
	}
	ov := Compute(orderID, warehouseOrgID, list)
	if ov != nil {
		a.logger.Debug("overview computed",
			logging.String(logging.FieldOrderID, orderID),
			logging.Int("total_cases", ov.TotalCases),
			logging.String("completion_percent", ov.CompletionPercent.StringFixed(1)),
		)
	}
	return ov, nil
}

// Compute summarizes an already loaded case list. Unknown stored statuses are
// bucketed as pending. It returns nil for an empty list.
func Compute(orderID, warehouseOrgID string, list []cases.MasterCase) *Overview {
	if len(list) == 0 {
		return nil
	}
	ov := &Overview{
		OrderID:        orderID,
		WarehouseOrgID: warehouseOrgID,
		StageCounts:    make(map[cases.Status]int, len(cases.Stages())),
	}
	for _, stage := range cases.Stages() {
		ov.StageCounts[stage] = 0
	}

	hundredths := int64(0)
	for _, mc := range list {
		stage, ok := cases.Canonical(mc.RawStatus)
		if !ok {
			stage = cases.StatusPending
		}
		ov.StageCounts[stage]++
		ov.TotalCases++
		ov.TotalUnits += mc.Units()
		hundredths += stage.Weight()
	}

	ov.CompletionScore = decimal.New(hundredths, -2)
	ov.CompletionPercent = ov.CompletionScore.
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(ov.TotalCases))).
		Round(1)
	ov.Cumulative = Cumulative(ov)
	return ov
}

// Cumulative returns, for each stage, the number of cases at that stage or
// any later one. A nil overview yields nil.
func Cumulative(ov *Overview) map[cases.Status]int {
	if ov == nil {
		return nil
	}
	stages := cases.Stages()
	out := make(map[cases.Status]int, len(stages))
	running := 0
	for i := len(stages) - 1; i >= 0; i-- {
		running += ov.StageCounts[stages[i]]
		out[stages[i]] = running
	}
	return out
}
