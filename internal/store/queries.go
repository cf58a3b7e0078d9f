package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Value operations

// Read returns the value stored under path/name.
// Returns ErrNotFound if the key or the value does not exist.
func (s *Store) Read(path, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM entries WHERE path = ? AND name = ?`, path, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", path, name, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(err, "failed to read %s/%s", path, name)
	}
	return data, nil
}

// Write stores data under path/name, creating the key and its parents.
func (s *Store) Write(path, name string, data []byte) error {
	if path == "" || name == "" {
		return fmt.Errorf("failed to write value: empty key path or name")
	}
	if data == nil {
		data = []byte{}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range parents(path) {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO keys (path, created_at) VALUES (?, ?)`, p, now); err != nil {
			return wrapErr(err, "failed to create key %s", p)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO entries (path, name, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path, name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, path, name, data, now)
	if err != nil {
		return wrapErr(err, "failed to write %s/%s", path, name)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write of %s/%s: %w", path, name, err)
	}
	return nil
}

// Delete removes path/name. Deleting a missing value is not an error.
func (s *Store) Delete(path, name string) error {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE path = ? AND name = ?`, path, name); err != nil {
		return wrapErr(err, "failed to delete %s/%s", path, name)
	}
	return nil
}

// Enumerate returns every value directly under path, ordered by name.
// A missing key yields no entries and no error.
func (s *Store) Enumerate(path string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT name, data
		FROM entries
		WHERE path = ?
		ORDER BY name
	`, path)
	if err != nil {
		return nil, wrapErr(err, "failed to enumerate %s", path)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Data); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// Key operations

// KeyExists reports whether path exists.
func (s *Store) KeyExists(path string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM keys WHERE path = ?`, path).Scan(&n); err != nil {
		return false, wrapErr(err, "failed to look up key %s", path)
	}
	return n > 0, nil
}

// DeleteKey removes path, its subkeys and all of their values.
func (s *Store) DeleteKey(path string) error {
	prefix := path + Separator
	_, err := s.db.Exec(`
		DELETE FROM keys
		WHERE path = ? OR substr(path, 1, length(?)) = ?
	`, path, prefix, prefix)
	if err != nil {
		return wrapErr(err, "failed to delete key %s", path)
	}
	return nil
}

// DeleteIfEmpty removes path when it has neither values nor subkeys.
// A missing key is not an error.
func (s *Store) DeleteIfEmpty(path string) error {
	prefix := path + Separator
	_, err := s.db.Exec(`
		DELETE FROM keys
		WHERE path = ?
		  AND NOT EXISTS (SELECT 1 FROM entries WHERE entries.path = ?)
		  AND NOT EXISTS (SELECT 1 FROM keys k WHERE substr(k.path, 1, length(?)) = ?)
	`, path, path, prefix, prefix)
	if err != nil {
		return wrapErr(err, "failed to delete empty key %s", path)
	}
	return nil
}

// CountEntries returns the number of values stored anywhere in the scope.
func (s *Store) CountEntries() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, wrapErr(err, "failed to count entries")
	}
	return count, nil
}
