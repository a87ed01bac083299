package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting and the value PRAGMA <name> reads back.
type pragma struct {
	name  string
	set   string
	value string
}

var pragmas = []pragma{
	{name: "journal_mode", set: "WAL", value: "wal"},
	{name: "synchronous", set: "NORMAL", value: "1"},
	{name: "busy_timeout", set: "5000", value: "5000"},
	{name: "foreign_keys", set: "ON", value: "1"},
}

// migration upgrades an archive from version-1 to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order for every archive whose user_version is lower.
// Fresh archives run them too; each statement is idempotent.
var migrations = []migration{
	{version: 1, stmt: `CREATE INDEX IF NOT EXISTS idx_solutions_run_seq ON solutions(run_id, seq)`},
}

// schemaVersion is the user_version of a fully migrated archive.
var schemaVersion = migrations[len(migrations)-1].version

// Store is the SQLite-backed archive of solve runs.
type Store struct {
	db *sql.DB
}

// Open creates or opens a run archive at the given path, applying
// pragmas and migrations. Opening an archive twice is harmless.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to their connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting opens an archive that must already exist. The returned
// error wraps os.ErrNotExist when path is missing.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	return Open(path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) configure() error {
	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply pragmas: %q: %w", stmt, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return s.migrate()
}

// migrate brings user_version up to schemaVersion one step at a time.
func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		current = m.version
	}
	return nil
}

// verifyPragma checks that a pragma reads back the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
