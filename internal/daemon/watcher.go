// Package daemon implements the watch loop that drives enforcement on a schedule.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// WatcherConfig holds watcher configuration.
type WatcherConfig struct {
	EnforcementInterval time.Duration // How often to run enforcement (default 1 min)
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		EnforcementInterval: config.DefaultWatchInterval,
	}
}

// Watcher runs the enforcer once on start and then on every tick.
// Runs never overlap.
type Watcher struct {
	config   WatcherConfig
	enforcer domain.Enforcer
	logger   *zap.Logger
	runs     int
}

// NewWatcher creates a new watcher.
func NewWatcher(config WatcherConfig, enforcer domain.Enforcer, logger *zap.Logger) *Watcher {
	if config.EnforcementInterval <= 0 {
		config.EnforcementInterval = DefaultWatcherConfig().EnforcementInterval
	}
	return &Watcher{
		config:   config,
		enforcer: enforcer,
		logger:   logger,
	}
}

// Run starts the watch loop.
// This blocks until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started",
		zap.Duration("interval", w.config.EnforcementInterval))

	// Run enforcement immediately on startup
	w.runEnforcement(ctx)

	ticker := time.NewTicker(w.config.EnforcementInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", zap.Int("runs", w.runs))
			return ctx.Err()

		case <-ticker.C:
			w.runEnforcement(ctx)
		}
	}
}

// Runs returns how many enforcement passes have been attempted.
func (w *Watcher) Runs() int {
	return w.runs
}

// runEnforcement executes one pass. Errors are logged and the loop continues.
func (w *Watcher) runEnforcement(ctx context.Context) {
	w.runs++
	w.logger.Debug("running enforcement", zap.Int("run", w.runs))

	report, err := w.enforcer.Enforce(ctx)
	if err != nil {
		w.logger.Error("enforcement failed", zap.Error(err))
		return
	}

	for _, u := range report.Usage {
		w.logger.Debug("usage",
			zap.String("target", u.Rule.Target),
			zap.Float64("used_minutes", u.UsedMinutes()),
			zap.Int("limit_minutes", u.Rule.LimitMinutes),
			zap.Bool("has_data", u.HasData))
	}

	if report.Restored || len(report.Terminated) > 0 || len(report.Blocked) > 0 || len(report.Failed) > 0 {
		w.logger.Info("enforcement completed",
			zap.String("summary", report.Summary()),
			zap.Int("failed", len(report.Failed)),
			zap.Int64("duration_ms", report.DurationMs))
	}
}
