// Package store is the hierarchical key-value store behind rlztrack.
//
// State is organised like a registry: slash-separated key paths that hold
// named values. Keys exist independently of their values so an emptied key
// can be detected and removed. A Store is one scope (per-user or machine);
// callers open one database per scope.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a value does not exist.
	ErrNotFound = errors.New("store: value not found")

	// ErrNotInitialized is returned when the schema has not been created.
	ErrNotInitialized = errors.New("store: database not initialized (call CreateSchema)")
)

// Store provides SQLite-backed key-value operations.
type Store struct {
	db   *sql.DB
	path string
}

// New creates a new Store with the specified database path.
// Use ":memory:" for in-memory databases (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool defaults
	db.SetMaxOpenConns(1) // SQLite only allows one writer at a time
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &Store{db: db, path: dbPath}, nil
}

// Open opens dbPath and creates the schema if needed.
func Open(dbPath string) (*Store, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// CreateSchema creates all tables and indexes.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// wrapErr maps "no such table" into ErrNotInitialized so callers can tell
// a fresh database from a broken one.
func wrapErr(err error, format string, args ...any) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotInitialized)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
