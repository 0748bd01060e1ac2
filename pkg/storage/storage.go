// Package storage re-exports the storage backend abstractions for stable
// external imports and provides the driver-selecting Open factory.
package storage

import (
	"statecore/internal/storage/core"
)

type (
	// Driver identifies a storage backend driver.
	Driver = core.Driver
	// Backend is the interface for durable state storage backends.
	Backend = core.Backend
)

const (
	// DriverFS is the local filesystem driver.
	DriverFS = core.DriverFS
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded SQLite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the PostgreSQL driver.
	DriverPostgres = core.DriverPostgres
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
)

// ErrNotFound indicates no persisted encoding exists for a kind.
var ErrNotFound = core.ErrNotFound

// FileName maps a kind identifier to its sanitized storage file name.
func FileName(kind, ext string) string { return core.FileName(kind, ext) }
