// Package polling expresses the client polling contract for batch jobs:
// status is read on a short interval, ticks are triggered on a longer one,
// and polling stops once the job leaves the active set or a bound is hit.
package polling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caseintake/internal/config"
	"caseintake/internal/services"
)

// ErrMaxAttempts is returned when the stop condition never held.
var ErrMaxAttempts = errors.New("polling gave up after max attempts")

// Schedule describes one polling loop.
type Schedule[T any] struct {
	// Interval between polls. The first poll happens immediately.
	Interval time.Duration
	// MaxAttempts bounds the number of polls; zero means unbounded.
	MaxAttempts int
	// Stop reports whether polling is done after observing a value.
	Stop func(T) bool
}

// Run polls until Stop holds, the context ends, a non-retryable error occurs,
// or MaxAttempts is reached. Retryable errors count as attempts and polling
// continues. onValue, when non-nil, sees every successfully polled value.
func (s Schedule[T]) Run(ctx context.Context, poll func(context.Context) (T, error), onValue func(T)) (T, error) {
	var last T
	if s.Interval <= 0 {
		return last, errors.New("polling interval must be positive")
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}

		value, err := poll(ctx)
		switch {
		case err != nil && !services.IsRetryable(err):
			return last, err
		case err == nil:
			last = value
			if onValue != nil {
				onValue(value)
			}
			if s.Stop != nil && s.Stop(value) {
				return value, nil
			}
		}

		if s.MaxAttempts > 0 && attempt >= s.MaxAttempts {
			if err != nil {
				return last, fmt.Errorf("%w: %w", ErrMaxAttempts, err)
			}
			return last, ErrMaxAttempts
		}
		timer.Reset(s.Interval)
	}
}

// Throttle gates a secondary action, such as a tick, to at most once per Every.
type Throttle struct {
	Every time.Duration
	last  time.Time
}

// Due reports whether the action should run now and, if so, records it.
func (t *Throttle) Due(now time.Time) bool {
	if t.last.IsZero() || now.Sub(t.last) >= t.Every {
		t.last = now
		return true
	}
	return false
}

// Intervals holds the configured client polling cadence.
type Intervals struct {
	Status      time.Duration
	Tick        time.Duration
	MaxAttempts int
}

// FromConfig reads the polling section.
func FromConfig(cfg *config.Config) Intervals {
	return Intervals{
		Status:      time.Duration(cfg.Polling.StatusIntervalSeconds) * time.Second,
		Tick:        time.Duration(cfg.Polling.TickIntervalSeconds) * time.Second,
		MaxAttempts: cfg.Polling.MaxAttempts,
	}
}
