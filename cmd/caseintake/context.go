package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"caseintake/internal/api"
	"caseintake/internal/batchjob"
	"caseintake/internal/config"
	"caseintake/internal/lease"
	"caseintake/internal/logging"
	"caseintake/internal/progress"
	"caseintake/internal/receiving"
	"caseintake/internal/store"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = cfg.Logging.Level
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

// intakeEnv is the per-command wiring of store, services, and logger.
type intakeEnv struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	service *api.IntakeService
	coord   *batchjob.Coordinator
}

func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

func (c *commandContext) withIntake(cmd *cobra.Command, fn func(context.Context, *intakeEnv) error) error {
	return c.withStore(func(cfg *config.Config, st *store.Store) error {
		logger, err := c.logger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		locker, err := lease.NewFromConfig(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("init batch lease: %w", err)
		}
		defer locker.Close()

		classifier := receiving.NewFromConfig(cfg, st, nil, logger)
		coord := batchjob.NewFromConfig(cfg, st, classifier, locker, nil, logger)
		env := &intakeEnv{
			cfg:     cfg,
			store:   st,
			logger:  logger,
			coord:   coord,
			service: api.NewIntakeService(classifier, coord, progress.NewAggregator(st, cfg.OperationTimeout(), logger), cfg.Intake.InlineReceiveLimit),
		}
		return fn(ctx, env)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
