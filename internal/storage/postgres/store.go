// Package postgres provides a Postgres-backed storage backend mirroring the
// sqlite state-table layout for deployments that centralize persisted state.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"statecore/internal/storage/core"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with the Open factory defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/statecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists kind encodings in a state(kind,payload) table.
type Store struct {
	db *sql.DB
}

// New opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), pings it, and ensures the state table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		kind TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Driver returns the backend driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverPostgres }

// PathFor returns a pseudo locator for diagnostics.
func (s *Store) PathFor(kind string) string { return "postgres://state/" + kind }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Exists reports whether a row is stored for the kind.
func (s *Store) Exists(ctx context.Context, kind string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT kind FROM state WHERE kind = $1`, kind).Scan(&found)
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
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE kind = $1`, kind).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", kind, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", kind, err)
	}
	return payload, nil
}

// Write upserts the kind's payload.
func (s *Store) Write(ctx context.Context, kind, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (kind, payload) VALUES ($1, $2) ON CONFLICT (kind) DO UPDATE SET payload = EXCLUDED.payload`,
		kind, text)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	return nil
}

// Delete removes the kind's row, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, kind string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE kind = $1`, kind)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureDir is satisfied at construction; the state table already exists.
func (s *Store) EnsureDir(_ context.Context) error { return nil }

// Clear truncates the state table.
func (s *Store) Clear(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind FROM state`)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	defer func() { _ = rows.Close() }()
	count := 0
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return 0, fmt.Errorf("clear scan: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("clear rows: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE state`); err != nil {
		return 0, fmt.Errorf("truncate state: %w", err)
	}
	return count, nil
}
