package main

import (
	"context"
	"fmt"
	"log/slog"

	"caseintake/internal/config"
	"caseintake/internal/daemon"
	"caseintake/internal/lease"
	"caseintake/internal/logging"
	"caseintake/internal/store"
)

// bootstrap loads configuration and wires the daemon. The caller owns Close.
func bootstrap(ctx context.Context, configPath string) (*daemon.Daemon, *slog.Logger, error) {
	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	if exists {
		logger.Info("configuration loaded", logging.String("path", path))
	} else {
		logger.Info("no configuration file found; using defaults", logging.String("path", path))
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	locker, err := lease.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("init batch lease: %w", err)
	}

	d, err := daemon.New(cfg, st, logger, locker)
	if err != nil {
		locker.Close()
		st.Close()
		return nil, nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, logger, nil
}
