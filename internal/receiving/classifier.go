package receiving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"caseintake/internal/cases"
	"caseintake/internal/codes"
	"caseintake/internal/config"
	"caseintake/internal/logging"
	"caseintake/internal/metrics"
	"caseintake/internal/services"
	"caseintake/internal/store"
)

// Store is the persistence surface the classifier consumes.
type Store interface {
	GetMasterCaseByCode(ctx context.Context, code, preferOrderID string) (*cases.MasterCase, error)
	CASMasterCaseStatus(ctx context.Context, tr store.Transition) (bool, error)
}

// Options tunes a Classifier.
type Options struct {
	OperationTimeout   time.Duration
	BreakerMaxFailures uint32
	BreakerOpenFor     time.Duration
	Metrics            *metrics.Metrics
	Logger             *slog.Logger
	Now                func() time.Time
}

// Classifier resolves tokens to receive outcomes. It is safe for concurrent use.
type Classifier struct {
	store   Store
	timeout time.Duration
	breaker *storeBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a classifier over the given store.
func New(st Store, opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "receiving")
	timeout := opts.OperationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Classifier{
		store:   st,
		timeout: timeout,
		breaker: newStoreBreaker(opts.BreakerMaxFailures, opts.BreakerOpenFor, opts.Metrics, logger),
		metrics: opts.Metrics,
		logger:  logger,
		now:     now,
	}
}

// NewFromConfig wires a classifier using the intake configuration section.
func NewFromConfig(cfg *config.Config, st Store, m *metrics.Metrics, logger *slog.Logger) *Classifier {
	return New(st, Options{
		OperationTimeout:   cfg.OperationTimeout(),
		BreakerMaxFailures: cfg.Intake.BreakerMaxFailures,
		BreakerOpenFor:     time.Duration(cfg.Intake.BreakerOpenSeconds) * time.Second,
		Metrics:            m,
		Logger:             logger,
	})
}

// Classify handles a manual submission. See ClassifyFrom.
func (c *Classifier) Classify(ctx context.Context, orderID, warehouseOrgID string, rawTokens []string) []Result {
	return c.ClassifyFrom(ctx, cases.SourceManual, orderID, warehouseOrgID, rawTokens)
}

// ClassifyFrom returns one result per token in submission order. The source
// is recorded on every movement the call writes.
func (c *Classifier) ClassifyFrom(ctx context.Context, source cases.MovementSource, orderID, warehouseOrgID string, rawTokens []string) []Result {
	started := time.Now()
	logger := logging.WithContext(ctx, c.logger)
	results := make([]Result, len(rawTokens))
	seen := make(map[string]int, len(rawTokens))

	for i, raw := range rawTokens {
		res := Result{Index: i, Input: raw, DuplicateOf: -1}
		res.Code = codes.Normalize(raw)
		switch {
		case res.Code == "":
			res.Outcome = OutcomeInvalidFormat
			res.Message = "not a master code"
		default:
			if first, ok := seen[res.Code]; ok {
				res.Outcome = OutcomeDuplicateRequest
				res.DuplicateOf = first
				res.Message = fmt.Sprintf("duplicate of entry %d", first+1)
				break
			}
			seen[res.Code] = i
			c.classifyCode(ctx, logger, source, orderID, warehouseOrgID, &res)
		}
		c.metrics.RecordOutcome(string(source), string(res.Outcome))
		results[i] = res
	}

	c.metrics.ObserveReceive(string(source), time.Since(started))
	summary := Summarize(results)
	logger.Debug("classification finished",
		logging.String(logging.FieldOrderID, orderID),
		logging.Int("total", summary.Total),
		logging.Int("received", summary.Received),
		logging.Int("errors", summary.Errors),
	)
	return results
}

func (c *Classifier) classifyCode(ctx context.Context, logger *slog.Logger, source cases.MovementSource, orderID, warehouseOrgID string, res *Result) {
	mc, err := c.lookup(ctx, res.Code, orderID)
	if err != nil {
		c.fail(logger, res, "lookup", err)
		return
	}
	if mc == nil {
		res.Outcome = OutcomeNotFound
		res.Message = "no master case with this code"
		return
	}
	if mc.OrderID != orderID {
		res.Outcome = OutcomeWrongOrder
		res.Message = fmt.Sprintf("belongs to order %s", mc.OrderID)
		return
	}

	status, known := cases.Canonical(mc.RawStatus)
	switch {
	case !known:
		res.Outcome = OutcomeInvalidStatus
		res.Message = fmt.Sprintf("unrecognized status %q", mc.RawStatus)
	case status == cases.StatusReceivedWarehouse:
		res.Outcome = OutcomeAlreadyReceived
		res.Message = "already received"
	case status.IsReceiveEligible():
		c.receive(ctx, logger, source, warehouseOrgID, mc, res)
	case status.IsPastReceive():
		res.Outcome = OutcomeAlreadyShipped
		res.Message = fmt.Sprintf("already %s", status.Label())
	default:
		res.Outcome = OutcomeInvalidStatus
		res.Message = fmt.Sprintf("cannot receive a case in status %s", status)
	}
}

func (c *Classifier) receive(ctx context.Context, logger *slog.Logger, source cases.MovementSource, warehouseOrgID string, mc *cases.MasterCase, res *Result) {
	expected := cases.ReceiveEligibleRaw()
	if !slices.Contains(expected, mc.RawStatus) {
		expected = append(expected, mc.RawStatus)
	}
	at := c.now().UTC()
	applied, err := c.transition(ctx, store.Transition{
		CaseID:         mc.ID,
		Expected:       expected,
		Next:           cases.StatusReceivedWarehouse,
		WarehouseOrgID: warehouseOrgID,
		At:             at,
		Source:         source,
	})
	if err != nil {
		c.fail(logger, res, "transition", err)
		return
	}
	if !applied {
		res.Outcome = OutcomeAlreadyReceived
		res.Message = "already received"
		return
	}

	snapshot := *mc
	snapshot.RawStatus = string(cases.StatusReceivedWarehouse)
	snapshot.Status = cases.StatusReceivedWarehouse
	snapshot.WarehouseOrgID = warehouseOrgID
	snapshot.ReceivedAt = &at
	snapshot.UpdatedAt = at
	res.Outcome = OutcomeReceived
	res.Message = "received"
	res.Case = &snapshot
}

func (c *Classifier) lookup(ctx context.Context, code, orderID string) (*cases.MasterCase, error) {
	out, err := c.breaker.execute("lookup", func() (interface{}, error) {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.store.GetMasterCaseByCode(opCtx, code, orderID)
	})
	if err != nil {
		return nil, err
	}
	mc, _ := out.(*cases.MasterCase)
	return mc, nil
}

func (c *Classifier) transition(ctx context.Context, tr store.Transition) (bool, error) {
	out, err := c.breaker.execute("transition", func() (interface{}, error) {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.store.CASMasterCaseStatus(opCtx, tr)
	})
	if err != nil {
		return false, err
	}
	applied, _ := out.(bool)
	return applied, nil
}

func (c *Classifier) fail(logger *slog.Logger, res *Result, operation string, err error) {
	res.Outcome = OutcomeError
	res.Case = nil
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		res.Message = "timed out, try again"
	case errors.Is(err, services.ErrTransient):
		res.Message = "store unavailable, try again"
	default:
		res.Message = "temporary failure, try again"
	}
	logging.WarnWithContext(logger, "receive failed", "receive_error",
		logging.String("code", res.Code),
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "resubmit the code once the store is healthy"),
		logging.String(logging.FieldImpact, "case left untouched"),
	)
}
