package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

const (
	stateFileName     = "state.json"
	maxHistoryEntries = 100
)

// stateDocument is the on-disk layout of the JSON state file.
type stateDocument struct {
	Version   int             `json:"version"`
	LastReset int64           `json:"last_reset,omitempty"` // unix seconds
	Actions   []domain.Action `json:"actions,omitempty"`    // oldest first
}

// FileStateStore implements domain.StateStore using a JSON file.
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a state store in dataDir.
func NewFileStateStore(dataDir string) *FileStateStore {
	return &FileStateStore{path: filepath.Join(dataDir, stateFileName)}
}

// NewFileStateStoreWithPath creates a state store at a specific path (for testing).
func NewFileStateStoreWithPath(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// GetStatePath returns the state file path.
func (s *FileStateStore) GetStatePath() string {
	return s.path
}

// LastReset returns the last reset time, zero if none was recorded.
func (s *FileStateStore) LastReset() (time.Time, error) {
	doc, err := s.load()
	if err != nil {
		return time.Time{}, err
	}
	if doc.LastReset == 0 {
		return time.Time{}, nil
	}
	return time.Unix(doc.LastReset, 0), nil
}

// SetLastReset records a reset.
func (s *FileStateStore) SetLastReset(t time.Time) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.LastReset = t.Unix()
	return s.atomicWrite(doc)
}

// RecordAction appends an action, keeping the newest maxHistoryEntries.
func (s *FileStateStore) RecordAction(a domain.Action) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Actions = append(doc.Actions, a)
	if len(doc.Actions) > maxHistoryEntries {
		doc.Actions = doc.Actions[len(doc.Actions)-maxHistoryEntries:]
	}
	return s.atomicWrite(doc)
}

// RecentActions returns up to limit actions, newest first.
func (s *FileStateStore) RecentActions(limit int) ([]domain.Action, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]domain.Action, 0, limit)
	for i := len(doc.Actions) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, doc.Actions[i])
	}
	return result, nil
}

// Close is a no-op; the file is opened per operation.
func (s *FileStateStore) Close() error {
	return nil
}

// load reads the state file; a missing file is an empty state.
func (s *FileStateStore) load() (*stateDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &stateDocument{Version: 1}, nil
		}
		return nil, err
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt state file %s: %w", s.path, err)
	}
	return &doc, nil
}

// atomicWrite writes state to file atomically (write + rename).
func (s *FileStateStore) atomicWrite(doc *stateDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileStateStore implements domain.StateStore.
var _ domain.StateStore = (*FileStateStore)(nil)
