// Package main is the CLI entry point for screentime.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/daemon"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
	"github.com/eliteGoblin/focusd/screen_time/internal/infra"
	"github.com/eliteGoblin/focusd/screen_time/internal/policy"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screentime",
	Short: "Daily screen time limits for apps and websites",
	Long: `screentime reads today's usage from ActivityWatch and enforces daily
limits: over-budget applications are terminated and over-budget websites
are redirected to localhost through the hosts file.

Run it from cron or a systemd timer, or use 'screentime watch'.`,
	Version:      Version,
	SilenceUsage: true,
}

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Check usage and enforce limits once",
	Long: `Runs one evaluate-and-enforce pass: restores the hosts file if the daily
reset is due, terminates over-budget applications and blocks over-budget
domains. Editing the hosts file usually needs root.`,
	RunE: runEnforce,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's usage against the limits",
	Long:  `Computes today's usage for every limit without enforcing anything.`,
	RunE:  runUsage,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the hosts file from its backup",
	RunE:  runRestore,
}

var limitsCmd = &cobra.Command{
	Use:   "limits [target]",
	Short: "List configured limits",
	Long:  `Lists every configured limit, or only the limits for one app or domain.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLimits,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show paths, backup state and recent actions",
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Enforce limits on an interval until interrupted",
	Long: `Runs enforcement immediately and then every watch.interval (default 1m)
until SIGINT or SIGTERM. Logs go to log.file, or the default log path.`,
	RunE: runWatch,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long:  `Writes the built-in defaults to the config path unless a file already exists.`,
	RunE:  runInit,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default <data dir>/config.toml)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(enforceCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(limitsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func runEnforce(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.enforcer.Enforce(cmd.Context())
	if err != nil {
		return fmt.Errorf("enforcement failed: %w", err)
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath, appOptions{dryRun: true})
	if err != nil {
		return err
	}
	defer a.Close()

	usage, warnings, err := a.enforcer.Evaluate(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printWarnings(out, warnings)
	for _, u := range usage {
		fmt.Fprintln(out, formatUsage(u))
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.enforcer.RestoreHosts(); err != nil {
		if errors.Is(err, domain.ErrNoBackup) {
			fmt.Fprintf(cmd.OutOrStdout(), "No backup at %s, nothing to restore.\n", a.hostsStore.BackupPath())
			return nil
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "🔄 Restored %s from %s\n", a.hostsStore.Path(), a.hostsStore.BackupPath())
	return nil
}

func runLimits(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	registry := policy.NewRegistry(cfg)
	if len(args) == 0 {
		printLimits(cmd.OutOrStdout(), registry.GetAll())
		return nil
	}

	rules, err := findLimits(registry, args[0])
	if err != nil {
		return err
	}
	printLimits(cmd.OutOrStdout(), rules)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	return printStatus(cmd.OutOrStdout(), a)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath, appOptions{watch: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// Set up graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching every %s (logs: %s)\n", a.cfg.Watch.Interval.Std(), a.logPath)

	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{EnforcementInterval: a.cfg.Watch.Interval.Std()},
		a.enforcer,
		a.logger,
	)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("watch loop stopped", zap.Int("runs", watcher.Runs()))
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = infra.DetectExecMode().ConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	if jsonOutput {
		_ = json.NewEncoder(out).Encode(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		return
	}
	fmt.Fprintf(out, "screentime %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
}
