package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	defaultConfigPath = "~/.config/caseintake/config.toml"
	projectConfigName = "caseintake.toml"
	databaseFileName  = "caseintake.db"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Intake contains the knobs for the receive classifier and batch coordinator.
type Intake struct {
	StaleAfterSeconds       int    `toml:"stale_after_seconds"`
	TickSliceSize           int    `toml:"tick_slice_size"`
	OperationTimeoutSeconds int    `toml:"operation_timeout_seconds"`
	InlineReceiveLimit      int    `toml:"inline_receive_limit"`
	BreakerMaxFailures      uint32 `toml:"breaker_max_failures"`
	BreakerOpenSeconds      int    `toml:"breaker_open_seconds"`
}

// Scheduler controls the in-daemon tick loop for active batch jobs.
type Scheduler struct {
	Enabled             bool `toml:"enabled"`
	TickIntervalSeconds int  `toml:"tick_interval_seconds"`
}

// Polling is the client-side watch contract used by `caseintake batch watch`.
type Polling struct {
	StatusIntervalSeconds int `toml:"status_interval_seconds"`
	TickIntervalSeconds   int `toml:"tick_interval_seconds"`
	MaxAttempts           int `toml:"max_attempts"`
}

// Lock configures the optional Redis lease held around each batch tick.
type Lock struct {
	RedisAddress  string `toml:"redis_address"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Notifications configures ntfy delivery of batch job outcomes.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for caseintake.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Intake: classifier timeouts, breaker, tick slice, staleness
//   - Scheduler: daemon tick loop
//   - Polling: client watch cadence
//   - Lock: optional Redis lease for multi-instance deployments
//   - Notifications: ntfy topic for batch completion and failure
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Intake        Intake        `toml:"intake"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Polling       Polling       `toml:"polling"`
	Lock          Lock          `toml:"lock"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, databaseFileName)
}

// LockPath returns the single-instance lock file used by the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "caseintaked.lock")
}

// StaleAfter is the heartbeat age beyond which a processing job is stale.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Intake.StaleAfterSeconds) * time.Second
}

// OperationTimeout bounds every individual store call made by intake components.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.Intake.OperationTimeoutSeconds) * time.Second
}

// SchedulerInterval is the pause between daemon tick sweeps.
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.TickIntervalSeconds) * time.Second
}

// LockTTL is the lifetime of a Redis lease before it expires on its own.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Lock.TTLSeconds) * time.Second
}

// NotificationTimeout bounds each ntfy request.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// RedisLockEnabled reports whether ticks should hold a Redis lease.
func (c *Config) RedisLockEnabled() bool {
	return strings.TrimSpace(c.Lock.RedisAddress) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
