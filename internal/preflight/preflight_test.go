package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"caseintake/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestRunAllWithStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg, st)
	if len(results) != 3 {
		t.Fatalf("expected 3 checks without redis, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestRunAllReportsDatabaseFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg, pingStub{err: errors.New("database is closed")})
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Database" {
		t.Fatalf("expected database failure, got %#v", failed)
	}
}

func TestOptionalFailuresAreNotFatal(t *testing.T) {
	results := []Result{{Name: "Redis lease", Optional: true}}
	if len(Failed(results)) != 0 {
		t.Fatal("optional failures must not count")
	}
}
