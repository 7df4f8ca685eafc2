package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/abhisek/rehearse/internal/deck"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = deck.ErrNotFound

	// ErrVersionConflict is returned when a card's schedule was changed by
	// another writer since it was read.
	ErrVersionConflict = deck.ErrVersionConflict

	// ErrUnsupportedDriver is returned by Open for unknown driver names.
	ErrUnsupportedDriver = errors.New("store: unsupported driver")
)

// Store holds the database handle and hands out repositories.
type Store struct {
	db      *sqlx.DB
	dialect string
	now     func() time.Time
}

// Open connects to the database, applies driver settings and creates the
// schema if needed.
func Open(driver, dsn string) (*Store, error) {
	var d string
	switch driver {
	case DriverSQLite, "":
		driver, d = DriverSQLite, dialect.SQLite
	case DriverPostgres, "postgres":
		driver, d = DriverPostgres, dialect.Postgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d == dialect.SQLite {
		// Pragmas are per connection and SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Cards returns the card repository.
func (s *Store) Cards() *CardStore {
	return &CardStore{s: s}
}

// Sessions returns the session repository.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{s: s}
}

// Progress returns the lifetime progress repository.
func (s *Store) Progress() *ProgressStore {
	return &ProgressStore{s: s}
}

// Prep returns the checklist and question repository.
func (s *Store) Prep() *PrepStore {
	return &PrepStore{s: s}
}

func (s *Store) sql() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// applyPragmas configures SQLite for single-user use.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			application_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			front TEXT NOT NULL,
			back TEXT NOT NULL DEFAULT '',
			easiness_factor DOUBLE PRECISION,
			repetition_count INTEGER NOT NULL DEFAULT 0,
			interval_days INTEGER NOT NULL DEFAULT 0,
			last_reviewed_at TEXT,
			next_review_at TEXT,
			version INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			queue TEXT NOT NULL,
			total_cards INTEGER NOT NULL,
			cards_reviewed INTEGER NOT NULL,
			cards_remaining INTEGER NOT NULL,
			rating_counts TEXT NOT NULL,
			average_rating DOUBLE PRECISION NOT NULL,
			reviewed TEXT NOT NULL DEFAULT '[]',
			started_at TEXT NOT NULL,
			ended_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS review_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			card_id TEXT NOT NULL REFERENCES cards(id),
			rating INTEGER NOT NULL,
			easiness_factor DOUBLE PRECISION NOT NULL,
			repetition_count INTEGER NOT NULL,
			interval_days INTEGER NOT NULL,
			reviewed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS progress (
			id INTEGER PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checklist_items (
			id TEXT PRIMARY KEY,
			application_id TEXT NOT NULL,
			label TEXT NOT NULL,
			required BOOLEAN NOT NULL,
			completed BOOLEAN NOT NULL,
			position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			application_id TEXT NOT NULL,
			text TEXT NOT NULL,
			likelihood TEXT NOT NULL,
			practice_count INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_position ON cards(position)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_next_review_at ON cards(next_review_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_review_events_session ON review_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checklist_application ON checklist_items(application_id)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_application ON questions(application_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// DefaultDBPath returns $XDG_DATA_HOME/rehearse/rehearse.db, falling back to
// ~/.local/share, and creates the parent directory.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "rehearse", "rehearse.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
