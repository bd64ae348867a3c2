package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

const (
	stateDBName      = "state.db"
	metaLastReset    = "last_reset"
	maxStoredActions = 1000
)

// actionRow mirrors the actions table.
type actionRow struct {
	ID      int64  `db:"id"`
	Kind    string `db:"kind"`
	Target  string `db:"target"`
	Outcome string `db:"outcome"`
	At      int64  `db:"at"`
}

// EncryptedStateStore implements domain.StateStore using a SQLCipher
// encrypted SQLite database.
type EncryptedStateStore struct {
	db     *sqlx.DB
	dbPath string
}

// NewEncryptedStateStore opens (or creates) an encrypted state database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStateStore(dataDir string, key []byte) (*EncryptedStateStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, stateDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only surfaces on first access
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedStateStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// OpenEncryptedStateStore loads (or generates) the key from the data
// directory's key file and opens the database with it.
func OpenEncryptedStateStore(dataDir string) (*EncryptedStateStore, error) {
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, err
	}
	return NewEncryptedStateStore(dataDir, key)
}

func (s *EncryptedStateStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetStatePath returns the database file path.
func (s *EncryptedStateStore) GetStatePath() string {
	return s.dbPath
}

// LastReset returns the last reset time, zero if none was recorded.
func (s *EncryptedStateStore) LastReset() (time.Time, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM meta WHERE key = ?`, metaLastReset)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt last_reset %q: %w", value, err)
	}
	return time.Unix(unix, 0), nil
}

// SetLastReset records a reset.
func (s *EncryptedStateStore) SetLastReset(t time.Time) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		metaLastReset, strconv.FormatInt(t.Unix(), 10))
	return err
}

// RecordAction appends an action and prunes the oldest beyond maxStoredActions.
func (s *EncryptedStateStore) RecordAction(a domain.Action) error {
	row := actionRow{
		Kind:    string(a.Kind),
		Target:  a.Target,
		Outcome: a.Outcome,
		At:      a.At.Unix(),
	}
	if _, err := s.db.NamedExec(`
		INSERT INTO actions (kind, target, outcome, at)
		VALUES (:kind, :target, :outcome, :at)`, row); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		DELETE FROM actions WHERE id NOT IN (
			SELECT id FROM actions ORDER BY id DESC LIMIT ?
		)`, maxStoredActions)
	return err
}

// RecentActions returns up to limit actions, newest first.
func (s *EncryptedStateStore) RecentActions(limit int) ([]domain.Action, error) {
	var rows []actionRow
	if err := s.db.Select(&rows,
		`SELECT id, kind, target, outcome, at FROM actions ORDER BY id DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}

	actions := make([]domain.Action, len(rows))
	for i, r := range rows {
		actions[i] = domain.Action{
			Kind:    domain.ActionKind(r.Kind),
			Target:  r.Target,
			Outcome: r.Outcome,
			At:      time.Unix(r.At, 0),
		}
	}
	return actions, nil
}

// Close releases the database connection.
func (s *EncryptedStateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStateStore implements domain.StateStore.
var _ domain.StateStore = (*EncryptedStateStore)(nil)
