package batchjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caseintake/internal/cases"
	"caseintake/internal/config"
	"caseintake/internal/lease"
	"caseintake/internal/logging"
	"caseintake/internal/metrics"
	"caseintake/internal/notifications"
	"caseintake/internal/receiving"
	"caseintake/internal/services"
)

// Store is the persistence surface the coordinator consumes.
type Store interface {
	GetBatch(ctx context.Context, batchID string) (*cases.Batch, error)
	GetBatchJob(ctx context.Context, batchID string) (*cases.BatchJob, error)
	StartBatchJob(ctx context.Context, batch cases.Batch, now time.Time) (bool, error)
	ClaimBatchJob(ctx context.Context, batchID, workerID string, now, staleBefore time.Time) (bool, error)
	RecordBatchProgress(ctx context.Context, batchID, workerID string, delta int, now time.Time) (bool, error)
	CompleteBatchJob(ctx context.Context, batchID, workerID string, now time.Time) (bool, error)
	FailBatchJob(ctx context.Context, batchID, workerID, lastError string, now time.Time) (bool, error)
	ReleaseBatchJob(ctx context.Context, batchID, workerID string, now time.Time) (bool, error)
	ResetBatchJob(ctx context.Context, batchID string, now time.Time) (bool, error)
	ListActiveBatchJobs(ctx context.Context) ([]*cases.BatchJob, error)
	ListEligibleBatchCases(ctx context.Context, batchID, orderID string, limit int) ([]cases.MasterCase, error)
}

// Classifier runs receive classification for a slice of codes.
type Classifier interface {
	ClassifyFrom(ctx context.Context, source cases.MovementSource, orderID, warehouseOrgID string, rawTokens []string) []receiving.Result
}

// Options tunes a Coordinator. Zero values fall back to the configuration defaults.
type Options struct {
	WorkerID         string
	StaleAfter       time.Duration
	SliceSize        int
	OperationTimeout time.Duration
	Locker           lease.Locker
	Metrics          *metrics.Metrics
	Notifier         notifications.Service
	Logger           *slog.Logger
	Now              func() time.Time
}

// Coordinator owns the batch job state machine.
type Coordinator struct {
	store      Store
	classifier Classifier
	workerID   string
	staleAfter time.Duration
	sliceSize  int
	opTimeout  time.Duration
	locker     lease.Locker
	metrics    *metrics.Metrics
	notifier   notifications.Service
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a coordinator.
func New(st Store, classifier Classifier, opts Options) *Coordinator {
	defaults := config.Default()
	c := &Coordinator{
		store:      st,
		classifier: classifier,
		workerID:   opts.WorkerID,
		staleAfter: opts.StaleAfter,
		sliceSize:  opts.SliceSize,
		opTimeout:  opts.OperationTimeout,
		locker:     opts.Locker,
		metrics:    opts.Metrics,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if c.workerID == "" {
		c.workerID = NewWorkerID()
	}
	if c.staleAfter <= 0 {
		c.staleAfter = defaults.StaleAfter()
	}
	if c.sliceSize <= 0 {
		c.sliceSize = defaults.Intake.TickSliceSize
	}
	if c.opTimeout <= 0 {
		c.opTimeout = defaults.OperationTimeout()
	}
	if c.locker == nil {
		c.locker = lease.Noop{}
	}
	if c.notifier == nil {
		c.notifier = notifications.Noop{}
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.logger, "batchjob").With(logging.String(logging.FieldWorkerID, c.workerID))
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// NewFromConfig wires a coordinator from the intake configuration.
func NewFromConfig(cfg *config.Config, st Store, classifier Classifier, locker lease.Locker, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	return New(st, classifier, Options{
		StaleAfter:       cfg.StaleAfter(),
		SliceSize:        cfg.Intake.TickSliceSize,
		OperationTimeout: cfg.OperationTimeout(),
		Locker:           locker,
		Metrics:          m,
		Notifier:         notifications.NewService(cfg),
		Logger:           logger,
	})
}

// NewWorkerID returns a fresh identifier for one coordinator instance.
func NewWorkerID() string {
	return "worker-" + uuid.NewString()
}

// WorkerID returns the identifier this coordinator claims jobs with.
func (c *Coordinator) WorkerID() string {
	return c.workerID
}

// StaleAfter returns the heartbeat age after which a processing job is stale.
func (c *Coordinator) StaleAfter() time.Duration {
	return c.staleAfter
}

func (c *Coordinator) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *Coordinator) batchLogger(ctx context.Context, batchID string) *slog.Logger {
	if _, ok := services.BatchIDFromContext(ctx); !ok {
		ctx = services.WithBatchID(ctx, batchID)
	}
	return logging.WithContext(ctx, c.logger)
}

func failureMessage(summary receiving.Summary, results []receiving.Result) string {
	for _, r := range results {
		if r.Outcome == receiving.OutcomeError {
			return fmt.Sprintf("%d of %d cases failed: %s", summary.Errors, summary.Total, r.Message)
		}
	}
	return fmt.Sprintf("%d of %d cases failed", summary.Errors, summary.Total)
}
