package domain

import (
	"context"
	"time"
)

// Tracker reads activity data from the tracking daemon.
// Implementation: ActivityWatch REST API.
type Tracker interface {
	// ListSources returns all buckets keyed by bucket ID.
	ListSources(ctx context.Context) (map[string]Bucket, error)

	// FetchEvents returns the events of one bucket within [start, end).
	FetchEvents(ctx context.Context, bucketID string, start, end time.Time) ([]Event, error)
}

// ProcessController terminates processes by executable name.
// Implementation: uses gopsutil for cross-platform support.
type ProcessController interface {
	// Terminate kills every process named name.
	// A process that is not running yields OutcomeNotRunning and no error.
	Terminate(name string) (TerminateOutcome, error)
}

// HostsStore gives access to the OS hosts file and its single backup.
type HostsStore interface {
	// Read returns the live file split into lines (line endings stripped).
	Read() ([]string, error)

	// Append adds lines to the end of the live file.
	// Existing content is kept byte for byte.
	Append(lines []string) error

	// BackupExists checks if the backup copy is present.
	BackupExists() bool

	// Backup copies the live file verbatim to the backup location.
	// Returns ErrBackupExists if a backup is already present.
	Backup() error

	// Restore overwrites the live file with the backup's bytes.
	// Returns ErrNoBackup if there is nothing to restore from.
	Restore() error

	// Path returns the live hosts file path.
	Path() string

	// BackupPath returns the backup file path.
	BackupPath() string
}

// PolicyStore provides access to the configured limit rules.
type PolicyStore interface {
	// GetAll returns all rules, app rules first, each group sorted by target.
	GetAll() []LimitRule

	// GetByTarget returns the rule of the given kind for target.
	GetByTarget(kind RuleKind, target string) (*LimitRule, error)
}

// StateStore persists the little run-to-run state screentime keeps.
// Implementations: JSON file, SQLCipher database.
type StateStore interface {
	// LastReset returns when the hosts file was last reset (zero if never).
	LastReset() (time.Time, error)

	// SetLastReset records a reset.
	SetLastReset(t time.Time) error

	// RecordAction appends an action to the history.
	RecordAction(a Action) error

	// RecentActions returns up to limit actions, newest first.
	RecentActions(limit int) ([]Action, error)

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// Notifier tells the user about enforcement actions.
type Notifier interface {
	Notify(summary, body string) error
}

// Enforcer evaluates usage against the limits and enforces violations.
type Enforcer interface {
	// Enforce runs one evaluate-and-enforce pass.
	Enforce(ctx context.Context) (*EnforcementReport, error)

	// Evaluate computes today's usage for every rule without enforcing.
	Evaluate(ctx context.Context) ([]TargetUsage, []string, error)

	// RestoreHosts restores the hosts file from its backup.
	RestoreHosts() error
}
