// Package journal provides a SQLite-backed log of accepted instrumentation
// pushes, grouped into sessions, that can be replayed into a fresh Manager.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/ingest"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the journal database.
	DefaultDBPath = "data/media-internals.db"

	// timeFormat sorts lexically in time order.
	timeFormat = "2006-01-02T15:04:05.000000000Z"
)

var (
	// ErrNotOpen is returned when the database is used before Open.
	ErrNotOpen = errors.New("journal not open")

	// ErrNoSession is returned when replaying a journal without sessions.
	ErrNoSession = errors.New("no journal session")
)

// Entry is one journaled push.
type Entry struct {
	Seq       int64
	SessionID string
	Time      time.Time
	Kind      ingest.Kind
	Payload   json.RawMessage
}

// Session summarizes one run of the service.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Entries   int       `json:"entries"`
}

// Stats describes the journal contents.
type Stats struct {
	SchemaVersion  string `json:"schemaVersion"`
	SessionCount   int    `json:"sessionCount"`
	EntryCount     int    `json:"entryCount"`
	CurrentSession string `json:"currentSession,omitempty"`
}

// DB is the SQLite journal. It implements ingest.Journal.
type DB struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	session string
	now     func() time.Time
}

// NewDB creates a journal instance for path.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
		now:  time.Now,
	}
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Journal database opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		d.session = ""
		return err
	}
	return nil
}

func (d *DB) initSchema() error {
	currentVersion := d.getSchemaVersion()

	if currentVersion == "" {
		if err := d.createSchema(); err != nil {
			return err
		}
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating journal schema")
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

func (d *DB) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		received_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS journal_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Msg("Journal schema created")
	return nil
}

func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM journal_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

func (d *DB) setMeta(key, value string) error {
	now := d.now().UTC().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO journal_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

func (d *DB) getMeta(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM journal_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// StartSession begins a new session; later appends belong to it.
func (d *DB) StartSession() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startSessionLocked()
}

func (d *DB) startSessionLocked() (string, error) {
	if d.db == nil {
		return "", ErrNotOpen
	}

	id := uuid.NewString()
	startedAt := d.now().UTC().Format(timeFormat)
	if _, err := d.db.Exec("INSERT INTO sessions (id, started_at) VALUES (?, ?)", id, startedAt); err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	d.session = id

	log.Info().Str("session", id).Msg("Journal session started")
	return id, nil
}

// SessionID returns the current session, or "" before the first append.
func (d *DB) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Append records one accepted push in the current session, starting a
// session if none is active.
func (d *DB) Append(kind ingest.Kind, payload json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}
	if d.session == "" {
		if _, err := d.startSessionLocked(); err != nil {
			return err
		}
	}

	_, err := d.db.Exec(
		"INSERT INTO entries (session_id, received_at, kind, payload) VALUES (?, ?, ?, ?)",
		d.session, d.now().UTC().Format(timeFormat), string(kind), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append %s: %w", kind, err)
	}
	return nil
}

// Sessions lists every session, most recent first.
func (d *DB) Sessions() ([]Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := d.db.Query(`
		SELECT s.id, s.started_at, COUNT(e.seq)
		FROM sessions s LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s         Session
			startedAt string
		)
		if err := rows.Scan(&s.ID, &startedAt, &s.Entries); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(timeFormat, startedAt)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LatestSession returns the most recently started session that has entries.
func (d *DB) LatestSession() (string, error) {
	sessions, err := d.Sessions()
	if err != nil {
		return "", err
	}
	for _, s := range sessions {
		if s.Entries > 0 {
			return s.ID, nil
		}
	}
	return "", ErrNoSession
}

// Replay calls fn for every entry of sessionID in append order. An empty
// sessionID selects the latest session with entries. Replay stops at the
// first error from fn or when ctx is done.
func (d *DB) Replay(ctx context.Context, sessionID string, fn func(Entry) error) error {
	if sessionID == "" {
		latest, err := d.LatestSession()
		if err != nil {
			return err
		}
		sessionID = latest
	}

	entries, err := d.entries(ctx, sessionID)
	if err != nil {
		return err
	}

	// fn runs without the lock so it may append to the journal.
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) entries(ctx context.Context, sessionID string) ([]Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT seq, session_id, received_at, kind, payload FROM entries WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			receivedAt string
			kind       string
			payload    string
		)
		if err := rows.Scan(&e.Seq, &e.SessionID, &receivedAt, &kind, &payload); err != nil {
			return nil, err
		}
		e.Time, _ = time.Parse(timeFormat, receivedAt)
		e.Kind = ingest.Kind(kind)
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplayInto applies a session to adapter without journaling it again and
// returns the number of entries applied. Entries that no longer decode are
// skipped.
func (d *DB) ReplayInto(ctx context.Context, sessionID string, adapter *ingest.Adapter) (int, error) {
	applied := 0
	err := d.Replay(ctx, sessionID, func(e Entry) error {
		if err := adapter.Apply(e.Kind, e.Payload); err != nil {
			log.Warn().Err(err).Int64("seq", e.Seq).Msg("Skipping journal entry")
			return nil
		}
		applied++
		return nil
	})
	if err != nil {
		return applied, err
	}

	log.Info().Int("entries", applied).Msg("Journal replayed")
	return applied, nil
}

// GetStats returns journal statistics.
func (d *DB) GetStats() (*Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	stats := &Stats{CurrentSession: d.session}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.SessionCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&stats.EntryCount); err != nil {
		return nil, err
	}
	stats.SchemaVersion, _ = d.getMeta("schema_version")
	return stats, nil
}

// DeleteSession removes a session and its entries.
func (d *DB) DeleteSession(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if d.session == sessionID {
		d.session = ""
	}
	log.Info().Str("session", sessionID).Msg("Journal session deleted")
	return nil
}
