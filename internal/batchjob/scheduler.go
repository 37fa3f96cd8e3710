package batchjob

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"caseintake/internal/logging"
	"caseintake/internal/services"
)

// Scheduler ticks every active batch on a fixed interval. It stands in for
// browser tabs and cron triggers when the daemon runs unattended.
type Scheduler struct {
	coord    *Coordinator
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastRun time.Time
}

// NewScheduler builds a scheduler around the coordinator.
func NewScheduler(coord *Coordinator, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 6 * time.Second
	}
	return &Scheduler{
		coord:    coord,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start launches the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.run(runCtx)
	s.logger.Info("scheduler started", logging.Duration("interval", s.interval))
	return nil
}

// Stop terminates the loop and waits for the in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns the time of the last completed pass and its error, if any.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce ticks every active batch once, in oldest-update order.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ids, err := s.coord.ActiveBatchIDs(ctx)
	if err != nil {
		s.record(err)
		s.logger.Error("failed to list active batches",
			logging.Error(err),
			logging.String(logging.FieldEventType, "scheduler_list_failed"),
			logging.String(logging.FieldErrorHint, "check database access"),
		)
		return
	}

	var lastErr error
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		tickCtx := services.WithBatchID(ctx, id)
		res, err := s.coord.Tick(tickCtx, id)
		if err != nil {
			lastErr = err
			logging.WarnWithContext(s.logger, "scheduled tick failed", "scheduler_tick_failed",
				logging.String(logging.FieldBatchID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "tick retries on the next pass"),
				logging.String(logging.FieldImpact, "batch progress delayed"),
			)
			continue
		}
		s.logger.Debug("scheduled tick",
			logging.String(logging.FieldBatchID, id),
			logging.String("outcome", string(res.Outcome)),
		)
	}
	s.record(lastErr)
}

func (s *Scheduler) record(err error) {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()
}
