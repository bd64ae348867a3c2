package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// mockTracker implements domain.Tracker for testing
type mockTracker struct {
	buckets  map[string]domain.Bucket
	events   map[string][]domain.Event
	listErr  error
	fetchErr error

	listCalls int
	fetches   map[string]int
	lastStart time.Time
	lastEnd   time.Time
}

func newMockTracker() *mockTracker {
	return &mockTracker{
		buckets: make(map[string]domain.Bucket),
		events:  make(map[string][]domain.Event),
		fetches: make(map[string]int),
	}
}

// withBucket registers a bucket and its events.
func (m *mockTracker) withBucket(id string, events ...domain.Event) *mockTracker {
	m.buckets[id] = domain.Bucket{ID: id}
	m.events[id] = events
	return m
}

func (m *mockTracker) ListSources(ctx context.Context) (map[string]domain.Bucket, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.buckets, nil
}

func (m *mockTracker) FetchEvents(ctx context.Context, bucketID string, start, end time.Time) ([]domain.Event, error) {
	m.fetches[bucketID]++
	m.lastStart, m.lastEnd = start, end
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.events[bucketID], nil
}

// mockProcessController implements domain.ProcessController for testing
type mockProcessController struct {
	running map[string]bool  // lowercase names
	failing map[string]error // lowercase names
	calls   []string
}

func (m *mockProcessController) Terminate(name string) (domain.TerminateOutcome, error) {
	m.calls = append(m.calls, name)
	key := strings.ToLower(name)
	if err, ok := m.failing[key]; ok {
		return domain.OutcomeNotRunning, err
	}
	if m.running[key] {
		return domain.OutcomeTerminated, nil
	}
	return domain.OutcomeNotRunning, nil
}

// memHostsStore implements domain.HostsStore in memory
type memHostsStore struct {
	lines     []string
	backup    []string
	hasBackup bool
	readErr   error
	writeErr  error

	backupCalls int
	writes      int
}

func newMemHostsStore(lines ...string) *memHostsStore {
	return &memHostsStore{lines: append([]string{}, lines...)}
}

func (m *memHostsStore) Read() ([]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]string{}, m.lines...), nil
}

func (m *memHostsStore) Append(lines []string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.lines = append(m.lines, lines...)
	return nil
}

func (m *memHostsStore) BackupExists() bool {
	return m.hasBackup
}

func (m *memHostsStore) Backup() error {
	if m.hasBackup {
		return domain.ErrBackupExists
	}
	m.backupCalls++
	m.backup = append([]string{}, m.lines...)
	m.hasBackup = true
	return nil
}

func (m *memHostsStore) Restore() error {
	if !m.hasBackup {
		return domain.ErrNoBackup
	}
	m.lines = append([]string{}, m.backup...)
	return nil
}

func (m *memHostsStore) Path() string       { return "/etc/hosts" }
func (m *memHostsStore) BackupPath() string { return "/etc/hosts.screentime.bak" }

// mockPolicyStore implements domain.PolicyStore for testing
type mockPolicyStore struct {
	rules []domain.LimitRule
}

func (m *mockPolicyStore) GetAll() []domain.LimitRule {
	return m.rules
}

func (m *mockPolicyStore) GetByTarget(kind domain.RuleKind, target string) (*domain.LimitRule, error) {
	for _, r := range m.rules {
		if r.Kind == kind && strings.EqualFold(r.Target, target) {
			return &r, nil
		}
	}
	return nil, nil
}

// mockStateStore implements domain.StateStore for testing
type mockStateStore struct {
	lastReset time.Time
	actions   []domain.Action
	readErr   error
	recordErr error
}

func (m *mockStateStore) LastReset() (time.Time, error) {
	return m.lastReset, m.readErr
}

func (m *mockStateStore) SetLastReset(t time.Time) error {
	m.lastReset = t
	return nil
}

func (m *mockStateStore) RecordAction(a domain.Action) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.actions = append(m.actions, a)
	return nil
}

func (m *mockStateStore) RecentActions(limit int) ([]domain.Action, error) {
	return m.actions, nil
}

func (m *mockStateStore) Close() error { return nil }

// mockNotifier implements domain.Notifier for testing
type mockNotifier struct {
	summaries []string
	bodies    []string
	err       error
}

func (m *mockNotifier) Notify(summary, body string) error {
	m.summaries = append(m.summaries, summary)
	m.bodies = append(m.bodies, body)
	return m.err
}

func appEvent(app string, minutes float64) domain.Event {
	return domain.Event{Duration: minutes * 60, Data: map[string]any{"app": app}}
}

func webEvent(url string, minutes float64) domain.Event {
	return domain.Event{Duration: minutes * 60, Data: map[string]any{"url": url}}
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
