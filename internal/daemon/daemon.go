package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"caseintake/internal/api"
	"caseintake/internal/batchjob"
	"caseintake/internal/config"
	"caseintake/internal/lease"
	"caseintake/internal/logging"
	"caseintake/internal/metrics"
	"caseintake/internal/preflight"
	"caseintake/internal/progress"
	"caseintake/internal/receiving"
	"caseintake/internal/store"
)

// Daemon coordinates the intake services and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	locker    lease.Locker
	metrics   *metrics.Metrics
	coord     *batchjob.Coordinator
	scheduler *batchjob.Scheduler
	service   *api.IntakeService
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	PID              int
	WorkerID         string
	DatabasePath     string
	LockFilePath     string
	SchedulerRunning bool
	LastSchedulerRun time.Time
	LastError        error
	ActiveBatches    []string
	JobStats         map[string]int
}

// New constructs a daemon with initialized dependencies. locker may be nil.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, locker lease.Locker) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	if locker == nil {
		locker = lease.Noop{}
	}

	m := metrics.New()
	classifier := receiving.NewFromConfig(cfg, st, m, logger)
	coord := batchjob.NewFromConfig(cfg, st, classifier, locker, m, logger)
	aggregator := progress.NewAggregator(st, cfg.OperationTimeout(), logger)

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		locker:    locker,
		metrics:   m,
		coord:     coord,
		scheduler: batchjob.NewScheduler(coord, cfg.SchedulerInterval(), logger),
		service:   api.NewIntakeService(classifier, coord, aggregator, cfg.Intake.InlineReceiveLimit),
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start runs preflight checks, acquires the daemon lock, and launches the
// scheduler and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg, d.store)); len(failed) > 0 {
		return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another caseintake daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.cfg.Scheduler.Enabled {
		if err := d.scheduler.Start(d.ctx); err != nil {
			d.abortStart()
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	if err := d.api.start(d.ctx); err != nil {
		d.scheduler.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("caseintake daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldWorkerID, d.coord.WorkerID()),
		logging.Bool("scheduler", d.cfg.Scheduler.Enabled),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.scheduler.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("caseintake daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.locker != nil {
		errs = append(errs, d.locker.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// Service exposes the intake service the HTTP API serves.
func (d *Daemon) Service() *api.IntakeService {
	return d.service
}

// Handler returns the HTTP handler, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler()
}

// Addr returns the bound API address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		WorkerID:         d.coord.WorkerID(),
		DatabasePath:     d.store.Path(),
		LockFilePath:     d.lockPath,
		SchedulerRunning: d.scheduler.Running(),
		JobStats:         map[string]int{},
	}
	status.LastSchedulerRun, status.LastError = d.scheduler.LastRun()

	if ids, err := d.coord.ActiveBatchIDs(ctx); err == nil {
		status.ActiveBatches = ids
	} else if status.LastError == nil {
		status.LastError = err
	}
	if stats, err := d.store.JobStats(ctx); err == nil {
		for k, v := range stats {
			status.JobStats[string(k)] = v
		}
	}
	return status
}
