package receiving

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"caseintake/internal/logging"
	"caseintake/internal/metrics"
	"caseintake/internal/services"
)

const breakerName = "case-store"

// storeBreaker guards store calls so a failing database turns into fast error
// outcomes instead of one timeout per remaining token.
type storeBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

func newStoreBreaker(maxFailures uint32, openFor time.Duration, m *metrics.Metrics, logger *slog.Logger) *storeBreaker {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.SetBreakerState(name, int(to))
			logging.WarnWithContext(logger, "circuit breaker state changed", "breaker_state",
				logging.String("name", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldErrorHint, "check database availability"),
				logging.String(logging.FieldImpact, "store calls fail fast while open"),
			)
		},
	}
	return &storeBreaker{cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

func (b *storeBreaker) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, services.Wrap(services.ErrTransient, "receiving", operation, "store unavailable, circuit open", err)
	}
	return result, err
}

func (b *storeBreaker) state() gobreaker.State {
	return b.cb.State()
}
