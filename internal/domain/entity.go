// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNoBackup is returned when a restore is requested before any backup was taken.
	ErrNoBackup = errors.New("hosts backup does not exist")

	// ErrBackupExists is returned when a backup would overwrite an existing one.
	ErrBackupExists = errors.New("hosts backup already exists")
)

// RuleKind identifies what a limit rule is measured against.
type RuleKind string

const (
	KindApp    RuleKind = "app"
	KindDomain RuleKind = "domain"
)

// LimitRule is a daily budget for one application or one domain.
type LimitRule struct {
	Kind         RuleKind
	Target       string // Application name (app) or domain substring (domain)
	LimitMinutes int
	CloseApp     string // Domain rules only: application to terminate on overrun
}

// Limit returns the budget as a duration.
func (r LimitRule) Limit() time.Duration {
	return time.Duration(r.LimitMinutes) * time.Minute
}

// Bucket is a tracker source: one stream of events from one watcher.
type Bucket struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Client   string `json:"client"`
	Hostname string `json:"hostname"`
	Created  string `json:"created"`
}

// Event is one observed activity interval reported by the tracker.
type Event struct {
	ID        int64          `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  float64        `json:"duration"` // seconds
	Data      map[string]any `json:"data"`
}

// Field returns a string payload field, or "" if absent or not a string.
func (e Event) Field(key string) string {
	if e.Data == nil {
		return ""
	}
	s, _ := e.Data[key].(string)
	return s
}

// App returns the focused application name of a window event.
func (e Event) App() string {
	return e.Field("app")
}

// Location returns the URL of a web event, falling back to its title.
func (e Event) Location() string {
	if url := e.Field("url"); url != "" {
		return url
	}
	return e.Field("title")
}

// Elapsed converts the reported duration into a time.Duration.
// Negative durations count as zero.
func (e Event) Elapsed() time.Duration {
	if e.Duration <= 0 {
		return 0
	}
	return time.Duration(e.Duration * float64(time.Second))
}

// TargetUsage is the computed usage of one rule for today.
type TargetUsage struct {
	Rule    LimitRule
	Used    time.Duration
	HasData bool // false when the rule's source was not found
}

// UsedMinutes returns the usage in fractional minutes.
func (u TargetUsage) UsedMinutes() float64 {
	return u.Used.Minutes()
}

// Exceeded reports whether the usage is strictly over the limit.
func (u TargetUsage) Exceeded() bool {
	return u.HasData && u.Used > u.Rule.Limit()
}

// TerminateOutcome is the result of a terminate-by-name request.
type TerminateOutcome int

const (
	OutcomeTerminated TerminateOutcome = iota
	OutcomeNotRunning
)

func (o TerminateOutcome) String() string {
	switch o {
	case OutcomeTerminated:
		return "terminated"
	case OutcomeNotRunning:
		return "not running"
	default:
		return "unknown"
	}
}

// ActionKind identifies an enforcement action.
type ActionKind string

const (
	ActionTerminate ActionKind = "terminate"
	ActionBlock     ActionKind = "block"
	ActionRestore   ActionKind = "restore"
)

// Action is one recorded enforcement step.
type Action struct {
	Kind    ActionKind `json:"kind" db:"kind"`
	Target  string     `json:"target" db:"target"`
	Outcome string     `json:"outcome" db:"outcome"`
	At      time.Time  `json:"at" db:"-"`
}

// TerminateFailure records a termination that failed for a reason other than "not running".
type TerminateFailure struct {
	Target string
	Err    error
}

// EnforcementReport captures what happened during a single enforcement run.
type EnforcementReport struct {
	Usage         []TargetUsage
	Terminated    []string
	NotRunning    []string
	Failed        []TerminateFailure
	Blocked       []string // Domains newly written to the hosts file
	AlreadyListed []string // Over-budget domains already present in the hosts file
	Restored      bool
	Warnings      []string
	ExecutedAt    time.Time
	DurationMs    int64
}

// Summary returns a one-line description of the actions taken.
func (r *EnforcementReport) Summary() string {
	var parts []string
	if r.Restored {
		parts = append(parts, "hosts restored")
	}
	if len(r.Terminated) > 0 {
		parts = append(parts, "terminated "+strings.Join(r.Terminated, ", "))
	}
	if len(r.Blocked) > 0 {
		parts = append(parts, "blocked "+strings.Join(r.Blocked, ", "))
	}
	if len(parts) == 0 {
		return "no action"
	}
	return strings.Join(parts, "; ")
}
