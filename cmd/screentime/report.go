package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

const recentActionCount = 10

func formatUsage(u domain.TargetUsage) string {
	if !u.HasData {
		return fmt.Sprintf("⏱ %s: no data / %d minutes used", u.Rule.Target, u.Rule.LimitMinutes)
	}
	return fmt.Sprintf("⏱ %s: %.1f / %d minutes used", u.Rule.Target, u.UsedMinutes(), u.Rule.LimitMinutes)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "⚠️  %s\n", msg)
	}
}

// printReport writes usage lines followed by one line per action taken.
func printReport(w io.Writer, r *domain.EnforcementReport) {
	if r.Restored {
		fmt.Fprintln(w, "🔄 Daily reset: hosts file restored from backup")
	}
	printWarnings(w, r.Warnings)

	for _, u := range r.Usage {
		fmt.Fprintln(w, formatUsage(u))
	}

	for _, name := range r.Terminated {
		fmt.Fprintf(w, "🚫 Closed %s: daily limit exceeded\n", name)
	}
	for _, name := range r.NotRunning {
		fmt.Fprintf(w, "   %s over limit (not running)\n", name)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "❌ Could not close %s: %v\n", f.Target, f.Err)
	}
	for _, d := range r.Blocked {
		fmt.Fprintf(w, "🚫 Blocked %s: daily limit exceeded\n", d)
	}
	for _, d := range r.AlreadyListed {
		fmt.Fprintf(w, "   %s already blocked\n", d)
	}
}

// findLimits returns the app and domain rules for target.
func findLimits(store domain.PolicyStore, target string) ([]domain.LimitRule, error) {
	var found []domain.LimitRule
	for _, kind := range []domain.RuleKind{domain.KindApp, domain.KindDomain} {
		if rule, err := store.GetByTarget(kind, target); err == nil {
			found = append(found, *rule)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no limit configured for %q", target)
	}
	return found, nil
}

func printLimits(w io.Writer, rules []domain.LimitRule) {
	fmt.Fprintln(w, "\n=== Daily Limits ===")
	if len(rules) == 0 {
		fmt.Fprintln(w, "No limits configured.")
	}

	var kind domain.RuleKind
	for _, r := range rules {
		if r.Kind != kind {
			kind = r.Kind
			switch kind {
			case domain.KindApp:
				fmt.Fprintln(w, "\nApplications:")
			case domain.KindDomain:
				fmt.Fprintln(w, "\nDomains:")
			}
		}
		line := fmt.Sprintf("  - %s: %d min", r.Target, r.LimitMinutes)
		if r.CloseApp != "" {
			line += fmt.Sprintf(" (closes %s)", r.CloseApp)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "\n====================")
}

func printStatus(w io.Writer, a *app) error {
	fmt.Fprintln(w, "\n=== screentime Status ===")
	fmt.Fprintf(w, "Execution mode: %s\n", a.mode.Mode)
	fmt.Fprintf(w, "Config: %s%s\n", a.cfgPath, existsSuffix(a.cfgPath, " (not found, using defaults)"))
	fmt.Fprintf(w, "Tracker: %s\n", a.cfg.Tracker.BaseURL)
	fmt.Fprintf(w, "Hosts file: %s\n", a.hostsStore.Path())
	if a.hostsStore.BackupExists() {
		fmt.Fprintf(w, "Backup: %s\n", a.hostsStore.BackupPath())
	} else {
		fmt.Fprintln(w, "Backup: none yet")
	}
	fmt.Fprintf(w, "State: %s (%s)\n", a.statePath, a.cfg.State.Backend)
	fmt.Fprintf(w, "Reset mode: %s\n", a.cfg.Reset.Mode)

	last, err := a.state.LastReset()
	if err != nil {
		return err
	}
	if last.IsZero() {
		fmt.Fprintln(w, "Last reset: never")
	} else {
		fmt.Fprintf(w, "Last reset: %s\n", last.Format(time.RFC3339))
	}

	actions, err := a.state.RecentActions(recentActionCount)
	if err != nil {
		return err
	}
	printActions(w, actions)

	fmt.Fprintln(w, "=========================")
	return nil
}

func printActions(w io.Writer, actions []domain.Action) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "\nNo recent actions.")
		return
	}
	fmt.Fprintln(w, "\nRecent actions:")
	for _, act := range actions {
		fmt.Fprintf(w, "  %s  %-9s %s (%s)\n",
			act.At.Local().Format("2006-01-02 15:04"), act.Kind, act.Target, act.Outcome)
	}
}

func existsSuffix(path, missing string) string {
	if _, err := os.Stat(path); err != nil {
		return missing
	}
	return ""
}
