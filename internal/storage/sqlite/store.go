// Package sqlite implements the storage backend on an embedded SQLite file:
// every kind's encoding lives in a single state table, written with upserts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"statecore/internal/storage/core"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store persists kind encodings in a state(kind,payload) table.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the SQLite database at path and ensures the state
// table exists.
func New(path string) (*Store, error) {
	if path == "" {
		path = "statecore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		kind TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Driver returns the backend driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// PathFor returns the database path qualified by kind, for diagnostics.
func (s *Store) PathFor(kind string) string { return s.path + "#" + kind }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Exists reports whether a row is stored for the kind.
func (s *Store) Exists(ctx context.Context, kind string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM state WHERE kind = ?`, kind).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", kind, err)
	}
	return true, nil
}

// Read returns the stored payload, or ErrNotFound when absent.
func (s *Store) Read(ctx context.Context, kind string) (string, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE kind = ?`, kind).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", kind, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", kind, err)
	}
	return string(payload), nil
}

// Write upserts the kind's payload.
func (s *Store) Write(ctx context.Context, kind, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state(kind,payload) VALUES(?,?) ON CONFLICT(kind) DO UPDATE SET payload=excluded.payload`,
		kind, []byte(text))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	return nil
}

// Delete removes the kind's row, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, kind string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE kind = ?`, kind)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureDir is satisfied at construction; the database file already exists.
func (s *Store) EnsureDir(_ context.Context) error { return nil }

// Clear removes every stored row, returning the removed count.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM state`)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
