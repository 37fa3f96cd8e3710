package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q must be host:port: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateIntake() error {
	if err := ensurePositiveMap(map[string]int{
		"intake.stale_after_seconds":       c.Intake.StaleAfterSeconds,
		"intake.tick_slice_size":           c.Intake.TickSliceSize,
		"intake.operation_timeout_seconds": c.Intake.OperationTimeoutSeconds,
		"intake.inline_receive_limit":      c.Intake.InlineReceiveLimit,
		"scheduler.tick_interval_seconds":  c.Scheduler.TickIntervalSeconds,
		"lock.ttl_seconds":                 c.Lock.TTLSeconds,
	}); err != nil {
		return err
	}
	if c.Intake.OperationTimeoutSeconds >= c.Intake.StaleAfterSeconds {
		return errors.New("intake.operation_timeout_seconds must be less than intake.stale_after_seconds")
	}
	if c.RedisLockEnabled() && c.Lock.TTLSeconds < c.Intake.OperationTimeoutSeconds {
		return errors.New("lock.ttl_seconds must be at least intake.operation_timeout_seconds")
	}
	return nil
}

func (c *Config) validatePolling() error {
	if err := ensurePositiveMap(map[string]int{
		"polling.status_interval_seconds": c.Polling.StatusIntervalSeconds,
		"polling.tick_interval_seconds":   c.Polling.TickIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.Polling.MaxAttempts < 0 {
		return errors.New("polling.max_attempts must be >= 0 (0 means unbounded)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
