package preflight

import (
	"context"

	"caseintake/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Pinger is anything with a reachability probe, such as the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunAll executes all applicable preflight checks for the given config.
// db may be nil when the caller has not opened the store.
func RunAll(ctx context.Context, cfg *config.Config, db Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if db != nil {
		results = append(results, CheckDatabase(ctx, cfg.DatabasePath(), db))
	}
	if cfg.RedisLockEnabled() {
		results = append(results, CheckRedis(ctx, cfg.Lock.RedisAddress, cfg.Lock.RedisPassword, cfg.Lock.RedisDB))
	}
	return results
}

// Failed returns the results of required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
