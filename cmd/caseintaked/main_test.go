package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestBootstrapWiresDaemon(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("CASEINTAKE_API_TOKEN", "")
	t.Setenv("CASEINTAKE_REDIS_ADDRESS", "")

	configPath := filepath.Join(base, "caseintake.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = \"127.0.0.1:0\"\n\n[scheduler]\nenabled = false\n\n[logging]\nlevel = \"error\"\n",
		filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, logger, err := bootstrap(ctx, configPath)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon running")
	}
	if status.DatabasePath != filepath.Join(base, "data", "caseintake.db") {
		t.Fatalf("unexpected database path %q", status.DatabasePath)
	}
}

func TestBootstrapRejectsBadConfig(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "caseintake.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nunknown_key = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := bootstrap(context.Background(), configPath); err == nil {
		t.Fatal("expected unknown config key to fail")
	}
}
