// Package lease provides an optional hard lock per batch for deployments that
// run more than one daemon against the same database. The job claim in the
// store remains the correctness guard; a lease only avoids wasted duplicate
// slices.
package lease

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"caseintake/internal/config"
	"caseintake/internal/logging"
)

// ErrBusy is returned when another holder owns the key.
var ErrBusy = errors.New("lease held elsewhere")

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out leases by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
	Close() error
}

// NewFromConfig returns a Redis-backed locker when lock.redis_address is set
// and a no-op locker otherwise.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Locker, error) {
	if cfg == nil || !cfg.RedisLockEnabled() {
		return Noop{}, nil
	}
	return NewRedis(ctx, RedisOptions{
		Address:  cfg.Lock.RedisAddress,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
		TTL:      cfg.LockTTL(),
	}, logger)
}

// Key builds the lease key for a batch.
func Key(batchID string) string {
	return "caseintake:batch:" + batchID
}

// Noop grants every lease.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Lease, error) { return noopLease{}, nil }

func (Noop) Close() error { return nil }

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }

// Local is an in-process locker. It guards keys within one process only.
type Local struct {
	mu   sync.Mutex
	held map[string]localEntry
	seq  uint64
	ttl  time.Duration
	now  func() time.Time
}

type localEntry struct {
	token   uint64
	expires time.Time
}

// NewLocal builds an in-process locker whose leases expire after ttl.
func NewLocal(ttl time.Duration) *Local {
	return &Local{held: make(map[string]localEntry), ttl: ttl, now: time.Now}
}

func (l *Local) Acquire(_ context.Context, key string) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if entry, ok := l.held[key]; ok && (l.ttl <= 0 || now.Before(entry.expires)) {
		return nil, ErrBusy
	}
	l.seq++
	l.held[key] = localEntry{token: l.seq, expires: now.Add(l.ttl)}
	return &localLease{owner: l, key: key, token: l.seq}, nil
}

func (l *Local) Close() error { return nil }

type localLease struct {
	owner *Local
	key   string
	token uint64
	once  sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		defer l.owner.mu.Unlock()
		// An expired lease must not release a newer holder.
		if entry, ok := l.owner.held[l.key]; ok && entry.token == l.token {
			delete(l.owner.held, l.key)
		}
	})
	return nil
}

// ReleaseQuietly releases a lease and logs, rather than returns, any failure.
func ReleaseQuietly(ctx context.Context, logger *slog.Logger, lease Lease, key string) {
	if lease == nil {
		return
	}
	if err := lease.Release(ctx); err != nil {
		logging.WarnWithContext(logger, "lease release failed", "lease_release",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "lease expires on its own after the ttl"),
		)
	}
}
