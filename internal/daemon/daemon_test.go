package daemon_test

import (
	"context"
	"testing"
	"time"

	"caseintake/internal/daemon"
	"caseintake/internal/logging"
	"caseintake/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, st, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if !status.SchedulerRunning {
		t.Fatal("expected scheduler to run when enabled")
	}
	if status.WorkerID == "" {
		t.Fatal("expected worker id")
	}
	if d.Addr() == "" {
		t.Fatal("expected bound api address")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if status.SchedulerRunning {
		t.Fatal("expected scheduler to be stopped")
	}
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSchedulerDisabled())
	st := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, st, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, st, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		first.Stop()
		second.Stop()
	})

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second daemon to fail acquiring the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected second daemon to start after first stopped: %v", err)
	}
}

func TestDaemonSchedulerDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSchedulerDisabled())
	st := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, st, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if d.Status(context.Background()).SchedulerRunning {
		t.Fatal("expected scheduler to stay off")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
