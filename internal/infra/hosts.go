package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// FileHostsStore implements domain.HostsStore on the OS hosts file.
// Writes happen in place: the hosts file keeps its inode, owner and mode.
type FileHostsStore struct {
	path       string
	backupPath string
}

// NewFileHostsStore creates a hosts store for path with its backup at backupPath.
func NewFileHostsStore(path, backupPath string) *FileHostsStore {
	return &FileHostsStore{path: path, backupPath: backupPath}
}

// Path returns the live hosts file path.
func (s *FileHostsStore) Path() string {
	return s.path
}

// BackupPath returns the backup file path.
func (s *FileHostsStore) BackupPath() string {
	return s.backupPath
}

// Read returns the hosts file as lines without line endings.
func (s *FileHostsStore) Read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}
	return splitLines(string(data)), nil
}

// Append adds lines after the current content, which is left as is.
// New lines use CRLF if the file already has any, LF otherwise.
func (s *FileHostsStore) Append(lines []string) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read hosts file: %w", err)
	}

	eol := "\n"
	if strings.Contains(string(data), "\r\n") {
		eol = "\r\n"
	}

	var b strings.Builder
	b.Write(data)
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		b.WriteString(eol)
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString(eol)
	}

	if err := writeInPlace(s.path, []byte(b.String())); err != nil {
		return fmt.Errorf("write hosts file: %w", err)
	}
	return nil
}

// BackupExists checks if the backup copy is present.
func (s *FileHostsStore) BackupExists() bool {
	_, err := os.Stat(s.backupPath)
	return err == nil
}

// Backup copies the hosts file verbatim to the backup path.
// An existing backup is never replaced.
func (s *FileHostsStore) Backup() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read hosts file: %w", err)
	}

	f, err := os.OpenFile(s.backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.ErrBackupExists
		}
		return fmt.Errorf("create hosts backup: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(s.backupPath) // A partial backup would be trusted forever
		return fmt.Errorf("write hosts backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(s.backupPath)
		return fmt.Errorf("sync hosts backup: %w", err)
	}
	return f.Close()
}

// Restore overwrites the hosts file with the backup's bytes.
func (s *FileHostsStore) Restore() error {
	data, err := os.ReadFile(s.backupPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNoBackup
		}
		return fmt.Errorf("read hosts backup: %w", err)
	}

	if err := writeInPlace(s.path, data); err != nil {
		return fmt.Errorf("restore hosts file: %w", err)
	}
	return nil
}

// writeInPlace truncates and rewrites path, keeping its permissions.
func writeInPlace(path string, data []byte) error {
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return os.WriteFile(path, data, perm)
}

// splitLines splits text into lines, dropping the final empty line
// produced by a trailing newline and any carriage returns.
func splitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Ensure FileHostsStore implements domain.HostsStore.
var _ domain.HostsStore = (*FileHostsStore)(nil)
