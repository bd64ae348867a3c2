// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// EnforcerDeps groups the collaborators of an enforcer.
// State and Notifier are optional.
type EnforcerDeps struct {
	Aggregator  *Aggregator
	Processes   domain.ProcessController
	Hosts       *HostsUpdater
	PolicyStore domain.PolicyStore
	Reset       ResetPolicy
	State       domain.StateStore
	Notifier    domain.Notifier
}

// EnforcerImpl implements domain.Enforcer.
type EnforcerImpl struct {
	aggregator  *Aggregator
	processes   domain.ProcessController
	hosts       *HostsUpdater
	policyStore domain.PolicyStore
	reset       ResetPolicy
	state       domain.StateStore
	notifier    domain.Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnforcer creates a new limit enforcer.
func NewEnforcer(deps EnforcerDeps, logger *zap.Logger) *EnforcerImpl {
	reset := deps.Reset
	if reset == nil {
		reset = WindowReset{}
	}
	return &EnforcerImpl{
		aggregator:  deps.Aggregator,
		processes:   deps.Processes,
		hosts:       deps.Hosts,
		policyStore: deps.PolicyStore,
		reset:       reset,
		state:       deps.State,
		notifier:    deps.Notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the wall clock (for testing).
func (e *EnforcerImpl) WithClock(now func() time.Time) *EnforcerImpl {
	e.now = now
	return e
}

// Evaluate computes today's usage for every rule without enforcing anything.
func (e *EnforcerImpl) Evaluate(ctx context.Context) ([]domain.TargetUsage, []string, error) {
	now := e.now()
	return e.aggregator.Collect(ctx, e.policyStore.GetAll(), StartOfDay(now), now)
}

// Enforce runs the daily reset check, then evaluates usage and enforces
// every exceeded limit. Tracker and hosts file failures abort the run;
// termination failures are recorded in the report.
func (e *EnforcerImpl) Enforce(ctx context.Context) (*domain.EnforcementReport, error) {
	start := e.now()
	report := &domain.EnforcementReport{ExecutedAt: start}

	if err := e.runReset(start, report); err != nil {
		return nil, err
	}

	usage, warnings, err := e.aggregator.Collect(ctx, e.policyStore.GetAll(), StartOfDay(start), start)
	if err != nil {
		return nil, err
	}
	report.Usage = usage
	for _, w := range warnings {
		e.warn(report, w)
	}

	terminated := make(map[string]bool)
	var blockSet []string

	for _, u := range usage {
		if !u.Exceeded() {
			continue
		}
		e.logger.Info("limit exceeded",
			zap.String("kind", string(u.Rule.Kind)),
			zap.String("target", u.Rule.Target),
			zap.Float64("used_minutes", u.UsedMinutes()),
			zap.Int("limit_minutes", u.Rule.LimitMinutes))

		switch u.Rule.Kind {
		case domain.KindApp:
			e.terminate(u.Rule.Target, terminated, report)
		case domain.KindDomain:
			blockSet = append(blockSet, u.Rule.Target)
			if u.Rule.CloseApp != "" {
				e.terminate(u.Rule.CloseApp, terminated, report)
			}
		}
	}

	if len(blockSet) > 0 {
		added, already, err := e.hosts.Block(blockSet)
		if err != nil {
			return nil, err
		}
		report.Blocked = added
		report.AlreadyListed = already
		for _, d := range added {
			e.record(domain.ActionBlock, d, "blocked", start)
		}
	}

	report.DurationMs = e.now().Sub(start).Milliseconds()
	e.announce(report)

	return report, nil
}

// RestoreHosts restores the hosts file from its backup.
func (e *EnforcerImpl) RestoreHosts() error {
	if err := e.hosts.Restore(); err != nil {
		return err
	}
	e.record(domain.ActionRestore, e.hostsPath(), "manual", e.now())
	return nil
}

func (e *EnforcerImpl) runReset(now time.Time, report *domain.EnforcementReport) error {
	due, err := e.reset.Due(now)
	if err != nil {
		e.warn(report, fmt.Sprintf("reset check failed: %v", err))
		return nil
	}
	if !due {
		return nil
	}

	err = e.hosts.Restore()
	switch {
	case errors.Is(err, domain.ErrNoBackup):
		e.warn(report, "daily reset: no hosts backup to restore")
	case err != nil:
		return err
	default:
		report.Restored = true
		e.record(domain.ActionRestore, e.hostsPath(), "daily reset", now)
	}

	if e.state != nil {
		if err := e.state.SetLastReset(now); err != nil {
			e.warn(report, fmt.Sprintf("failed to record reset: %v", err))
		}
	}
	return nil
}

// terminate kills name at most once per run.
func (e *EnforcerImpl) terminate(name string, done map[string]bool, report *domain.EnforcementReport) {
	key := strings.ToLower(name)
	if done[key] {
		return
	}
	done[key] = true

	outcome, err := e.processes.Terminate(name)
	if err != nil {
		e.logger.Warn("failed to terminate",
			zap.String("target", name),
			zap.Error(err))
		report.Failed = append(report.Failed, domain.TerminateFailure{Target: name, Err: err})
		if outcome == domain.OutcomeTerminated {
			// Some instances were killed before the failure
			report.Terminated = append(report.Terminated, name)
		}
		e.record(domain.ActionTerminate, name, "failed: "+err.Error(), report.ExecutedAt)
		return
	}

	switch outcome {
	case domain.OutcomeTerminated:
		e.logger.Info("terminated", zap.String("target", name))
		report.Terminated = append(report.Terminated, name)
		e.record(domain.ActionTerminate, name, outcome.String(), report.ExecutedAt)
	case domain.OutcomeNotRunning:
		e.logger.Debug("not running", zap.String("target", name))
		report.NotRunning = append(report.NotRunning, name)
	}
}

func (e *EnforcerImpl) warn(report *domain.EnforcementReport, msg string) {
	e.logger.Warn(msg)
	report.Warnings = append(report.Warnings, msg)
}

// record appends to the action history. Failures are logged only.
func (e *EnforcerImpl) record(kind domain.ActionKind, target, outcome string, at time.Time) {
	if e.state == nil {
		return
	}
	err := e.state.RecordAction(domain.Action{Kind: kind, Target: target, Outcome: outcome, At: at})
	if err != nil {
		e.logger.Warn("failed to record action",
			zap.String("kind", string(kind)),
			zap.String("target", target),
			zap.Error(err))
	}
}

func (e *EnforcerImpl) announce(report *domain.EnforcementReport) {
	if e.notifier == nil {
		return
	}
	limited := len(report.Terminated) > 0 || len(report.Blocked) > 0
	if !limited && !report.Restored {
		return
	}
	title := "Screen time limit reached"
	if !limited {
		title = "Screen time reset"
	}
	if err := e.notifier.Notify(title, report.Summary()); err != nil {
		e.logger.Debug("notification failed", zap.Error(err))
	}
}

func (e *EnforcerImpl) hostsPath() string {
	return e.hosts.store.Path()
}

// Ensure EnforcerImpl implements domain.Enforcer.
var _ domain.Enforcer = (*EnforcerImpl)(nil)
