package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Tick slice size")
	requireContains(t, out, "caseintake.db")
	if strings.Contains(out, "Warning:") {
		t.Fatalf("loopback bind should not warn:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	requireContains(t, err.Error(), "--overwrite")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, target, ""); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestConfigValidateWarnsOnExposedAPI(t *testing.T) {
	env := setupCLITestEnv(t)
	raw, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	exposed := strings.Replace(string(raw), `api_bind = "127.0.0.1:0"`, `api_bind = "0.0.0.0:7490"`, 1)
	if exposed == string(raw) {
		t.Fatalf("test config has no api_bind to replace:\n%s", raw)
	}
	if err := os.WriteFile(env.configPath, []byte(exposed), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Warning: api_bind 0.0.0.0:7490")
}
