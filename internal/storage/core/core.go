// Package core defines the storage backend contract for persisted state:
// one text blob per kind, durable across process restarts.
package core

import (
	"context"
	"errors"
	"strings"
)

// Driver identifies a concrete storage backend implementation.
type Driver string

const (
	DriverFS       Driver = "fs"       // local filesystem, one file per kind (default)
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverS3       Driver = "s3"       // S3 / MinIO compatible
)

// ErrNotFound reports that no persisted encoding exists for a kind. Callers
// treat it as "fall back to default construction", never as fatal.
var ErrNotFound = errors.New("storage: kind not found")

// Backend is the durable storage boundary used by the persistence pipeline.
// Implementations serialize nothing themselves; they move opaque text.
// Mutual exclusion across concurrent save/load callers is the pipeline's
// responsibility, not the backend's.
type Backend interface {
	// PathFor returns the deterministic storage location for a kind,
	// primarily for diagnostics.
	PathFor(kind string) string
	// Exists reports whether a persisted encoding is present for the kind.
	Exists(ctx context.Context, kind string) (bool, error)
	// Read returns the persisted text. Missing kinds yield ErrNotFound.
	Read(ctx context.Context, kind string) (string, error)
	// Write stores text for the kind, overwriting any previous encoding.
	Write(ctx context.Context, kind, text string) error
	// Delete removes the kind's encoding, reporting whether one existed.
	Delete(ctx context.Context, kind string) (bool, error)
	// EnsureDir makes sure the persistence location exists.
	EnsureDir(ctx context.Context) error
	// Clear removes every persisted encoding, returning the removed count.
	Clear(ctx context.Context) (int, error)
	// Driver returns the configured backend driver identifier.
	Driver() Driver
}

var kindFlattener = strings.NewReplacer(
	"::", "_",
	":", "_",
	".", "_",
	"/", "_",
	"\\", "_",
	" ", "_",
)

// FileName maps a kind identifier to its storage file name: qualified or
// nested kind names are flattened with underscores and the codec extension is
// appended. The result never contains path separators, so it cannot escape
// the persistence directory.
func FileName(kind, ext string) string {
	return kindFlattener.Replace(strings.TrimSpace(kind)) + ext
}
