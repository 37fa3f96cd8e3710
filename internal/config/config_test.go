package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"caseintake/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CASEINTAKE_API_TOKEN", "")
	t.Setenv("CASEINTAKE_REDIS_ADDRESS", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "caseintake")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "caseintake.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.StaleAfter() != 3*time.Minute {
		t.Fatalf("expected 3 minute staleness, got %s", cfg.StaleAfter())
	}
	if cfg.RedisLockEnabled() {
		t.Fatal("expected redis lease disabled by default")
	}
	if !cfg.Scheduler.Enabled {
		t.Fatal("expected scheduler enabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "caseintake.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Intake struct {
			TickSliceSize     int `toml:"tick_slice_size"`
			StaleAfterSeconds int `toml:"stale_after_seconds"`
		} `toml:"intake"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Intake.TickSliceSize = 10
	custom.Intake.StaleAfterSeconds = 240
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Intake.TickSliceSize != 10 {
		t.Fatalf("expected slice size 10, got %d", cfg.Intake.TickSliceSize)
	}
	if cfg.Intake.StaleAfterSeconds != 240 {
		t.Fatalf("expected staleness 240, got %d", cfg.Intake.StaleAfterSeconds)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected format normalized to json, got %q", cfg.Logging.Format)
	}
	if cfg.Intake.OperationTimeoutSeconds != config.Default().Intake.OperationTimeoutSeconds {
		t.Fatalf("expected default operation timeout, got %d", cfg.Intake.OperationTimeoutSeconds)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "caseintake.toml")
	if err := os.WriteFile(configPath, []byte("[intake]\ntick_slice = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CASEINTAKE_API_TOKEN", "env-token")
	t.Setenv("CASEINTAKE_REDIS_ADDRESS", "localhost:6379")

	configPath := filepath.Join(t.TempDir(), "caseintake.toml")
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Lock.RedisAddress != "localhost:6379" {
		t.Errorf("expected redis address from env, got %q", cfg.Lock.RedisAddress)
	}
	if !cfg.RedisLockEnabled() {
		t.Error("expected redis lease enabled")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "stale_after_seconds") {
		t.Fatalf("sample config missing intake section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Intake.TickSliceSize != config.Default().Intake.TickSliceSize {
		t.Fatalf("sample slice size %d drifted from default", cfg.Intake.TickSliceSize)
	}
	if !strings.Contains(cfg.Paths.DataDir, "caseintake") {
		t.Fatalf("expected data dir to contain caseintake, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Intake.TickSliceSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive slice size")
	}

	cfg = config.Default()
	cfg.Intake.OperationTimeoutSeconds = cfg.Intake.StaleAfterSeconds
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when operation timeout reaches staleness")
	}

	cfg = config.Default()
	cfg.Paths.APIBind = "no-port"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed bind address")
	}

	cfg = config.Default()
	cfg.Polling.MaxAttempts = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative max attempts")
	}

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	cfg.Lock.RedisAddress = "localhost:6379"
	cfg.Lock.TTLSeconds = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when lease ttl is shorter than an operation")
	}
}
