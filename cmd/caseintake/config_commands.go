package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"caseintake/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold the intake configuration",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, os.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next: set intake.tick_slice_size for your lot sizes, then run `caseintake config validate`.")
			fmt.Fprintln(out, "Set api_token or CASEINTAKE_API_TOKEN before binding caseintaked beyond localhost.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/caseintake/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func resolveInitTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and print the effective intake settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = path + " (not found, defaults in effect)"
			}
			fmt.Fprintf(out, "Config: %s\n", source)
			fmt.Fprintln(out, renderTable(textColumns("Setting", "Value"), effectiveSettings(cfg)))
			warnExposedAPI(out, cfg)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func effectiveSettings(cfg *config.Config) [][]string {
	scheduler := "off"
	if cfg.Scheduler.Enabled {
		scheduler = "every " + cfg.SchedulerInterval().String()
	}
	lease := "off"
	if cfg.RedisLockEnabled() {
		lease = fmt.Sprintf("%s db %d, ttl %s", cfg.Lock.RedisAddress, cfg.Lock.RedisDB, cfg.LockTTL())
	}
	notify := "off"
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		notify = topic
	}
	return [][]string{
		{"Database", cfg.DatabasePath()},
		{"API bind", cfg.Paths.APIBind},
		{"API token", yesNo(cfg.Paths.APIToken != "")},
		{"Tick slice size", strconv.Itoa(cfg.Intake.TickSliceSize)},
		{"Stale after", cfg.StaleAfter().String()},
		{"Operation timeout", cfg.OperationTimeout().String()},
		{"Scheduler", scheduler},
		{"Redis lease", lease},
		{"Notifications", notify},
	}
}

func warnExposedAPI(w io.Writer, cfg *config.Config) {
	if cfg.Paths.APIToken != "" {
		return
	}
	host, _, err := net.SplitHostPort(cfg.Paths.APIBind)
	if err != nil {
		return
	}
	if ip := net.ParseIP(host); host == "localhost" || (ip != nil && ip.IsLoopback()) {
		return
	}
	fmt.Fprintf(w, "Warning: api_bind %s is reachable off-host and api_token is empty\n", cfg.Paths.APIBind)
}
