package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"caseintake/internal/logging"
)

// RedisOptions configures the Redis locker.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis hands out leases backed by bsm/redislock.
type Redis struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Address, err)
	}
	logger = logging.NewComponentLogger(logger, "lease")
	logger.Info("redis lease enabled", logging.String("address", opts.Address), logging.Duration("ttl", opts.TTL))
	return &Redis{
		client: client,
		locker: redislock.New(client),
		ttl:    opts.TTL,
		logger: logger,
	}, nil
}

// Acquire obtains the key without waiting. ErrBusy means another holder has it.
func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	lock, err := r.locker.Obtain(ctx, key, r.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lease %s: %w", key, err)
	}
	return &redisLease{lock: lock}, nil
}

// Close shuts the Redis client down.
func (r *Redis) Close() error {
	return r.client.Close()
}

type redisLease struct {
	lock *redislock.Lock
}

func (l *redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
