package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
	"github.com/eliteGoblin/focusd/screen_time/internal/infra"
	"github.com/eliteGoblin/focusd/screen_time/internal/policy"
	"github.com/eliteGoblin/focusd/screen_time/internal/usecase"
)

// app holds the components wired for one command invocation.
type app struct {
	cfg        *config.Config
	cfgPath    string
	mode       *infra.ExecModeConfig
	logger     *zap.Logger
	logPath    string
	state      domain.StateStore
	statePath  string
	hostsStore *infra.FileHostsStore
	enforcer   *usecase.EnforcerImpl
}

// loadConfig reads the config file (or defaults) and fills platform paths.
func loadConfig(path string) (*config.Config, string, error) {
	mode := infra.DetectExecMode()
	if path == "" {
		path = mode.ConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	applyPlatformDefaults(cfg, mode)
	return cfg, path, nil
}

func applyPlatformDefaults(cfg *config.Config, mode *infra.ExecModeConfig) {
	if cfg.Hosts.Path == "" {
		cfg.Hosts.Path = mode.HostsPath
	}
	if cfg.Hosts.BackupPath == "" {
		cfg.Hosts.BackupPath = infra.DefaultBackupPath(cfg.Hosts.Path)
	}
	if cfg.State.DataDir == "" {
		cfg.State.DataDir = mode.DataDir
	}
	if cfg.Log.File == "" {
		cfg.Log.File = mode.LogPath
	}
}

// appOptions selects how newApp wires the components.
type appOptions struct {
	// watch selects the file logger used by the long-running loop.
	// Other commands log to stderr.
	watch bool

	// dryRun leaves the state store closed so nothing is written to the data directory.
	dryRun bool
}

// newApp wires every component for one command.
func newApp(path string, opts appOptions) (*app, error) {
	cfg, cfgPath, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		mode:    infra.DetectExecMode(),
	}

	if opts.watch {
		a.logger, a.logPath = createFileLogger(cfg.Log)
	} else {
		a.logger = createConsoleLogger(cfg.Log)
		a.logPath = "stderr"
	}

	var reset usecase.ResetPolicy = usecase.WindowReset{}
	if !opts.dryRun {
		a.state, a.statePath, err = openStateStore(cfg.State)
		if err != nil {
			_ = a.logger.Sync()
			return nil, err
		}

		reset, err = usecase.NewResetPolicy(cfg.Reset.Mode, a.state)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var notifier domain.Notifier = infra.NopNotifier{}
	if cfg.Notify.Enabled {
		notifier = infra.NewDBusNotifier()
	}

	a.hostsStore = infra.NewFileHostsStore(cfg.Hosts.Path, cfg.Hosts.BackupPath)
	tracker := infra.NewActivityWatchClient(cfg.Tracker.BaseURL, cfg.Tracker.Timeout.Std())

	a.enforcer = usecase.NewEnforcer(usecase.EnforcerDeps{
		Aggregator:  usecase.NewAggregator(tracker, cfg.Tracker.WindowSourcePrefix, cfg.Tracker.WebSourcePrefix, a.logger),
		Processes:   infra.NewProcessController(),
		Hosts:       usecase.NewHostsUpdater(a.hostsStore, cfg.Hosts.BlockAddress, a.logger),
		PolicyStore: policy.NewRegistry(cfg),
		Reset:       reset,
		State:       a.state,
		Notifier:    notifier,
	}, a.logger)

	return a, nil
}

// Close releases the state store and flushes logs.
func (a *app) Close() {
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.logger.Warn("failed to close state store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func openStateStore(cfg config.StateConfig) (domain.StateStore, string, error) {
	switch cfg.Backend {
	case config.BackendEncrypted:
		store, err := infra.OpenEncryptedStateStore(cfg.DataDir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open encrypted state: %w", err)
		}
		return store, store.GetStatePath(), nil
	default:
		store := infra.NewFileStateStore(cfg.DataDir)
		return store, store.GetStatePath(), nil
	}
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// createConsoleLogger returns a human-readable logger on stderr.
func createConsoleLogger(cfg config.LogConfig) *zap.Logger {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zc.DisableStacktrace = true

	logger, err := zc.Build()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// createFileLogger returns a JSON logger writing to cfg.File, falling back to stderr.
func createFileLogger(cfg config.LogConfig) (*zap.Logger, string) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.File != "" && os.MkdirAll(filepath.Dir(cfg.File), 0755) == nil {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
		if logger, err := zc.Build(); err == nil {
			return logger, cfg.File
		}
	}

	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger, "stderr"
}
