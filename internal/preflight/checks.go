package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies the path is a directory with read, write, and
// execute permission for the current user.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase pings the database with a short timeout.
func CheckDatabase(ctx context.Context, path string, db Pinger) Result {
	const name = "Database"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", path)}
}

// CheckRedis verifies the lease backend answers a PING. A failure is
// reported as optional because ticks fall back to the job claim alone.
func CheckRedis(ctx context.Context, address, password string, db int) Result {
	const name = "Redis lease"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: address, Password: password, DB: db})
	defer client.Close()
	if err := client.Ping(checkCtx).Err(); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: %v)", address, err)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: fmt.Sprintf("%s (reachable)", address)}
}
