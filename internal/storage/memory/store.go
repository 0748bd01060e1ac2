// Package memory implements an in-memory storage backend for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"statecore/internal/storage/core"
)

// Store keeps each kind's encoding in a process-local map.
type Store struct {
	mu    sync.RWMutex
	ext   string
	blobs map[string]string
}

// New returns an empty in-memory backend using ext for PathFor diagnostics.
func New(ext string) *Store {
	if ext == "" {
		ext = ".json"
	}
	return &Store{ext: ext, blobs: make(map[string]string)}
}

// Driver returns the backend driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// PathFor returns a pseudo path for diagnostics.
func (s *Store) PathFor(kind string) string {
	return "mem://" + core.FileName(kind, s.ext)
}

// Exists reports whether an encoding is stored for the kind.
func (s *Store) Exists(_ context.Context, kind string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[kind]
	return ok, nil
}

// Read returns the stored text, or ErrNotFound when absent.
func (s *Store) Read(_ context.Context, kind string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.blobs[kind]
	if !ok {
		return "", fmt.Errorf("%s: %w", kind, core.ErrNotFound)
	}
	return text, nil
}

// Write stores text for the kind, overwriting any previous encoding.
func (s *Store) Write(_ context.Context, kind, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[kind] = text
	return nil
}

// Delete removes the kind's encoding, reporting whether one existed.
func (s *Store) Delete(_ context.Context, kind string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[kind]
	if ok {
		delete(s.blobs, kind)
	}
	return ok, nil
}

// EnsureDir is a no-op for the memory driver.
func (s *Store) EnsureDir(_ context.Context) error { return nil }

// Clear removes every stored encoding.
func (s *Store) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.blobs)
	s.blobs = make(map[string]string)
	return n, nil
}

// Kinds returns the stored kind identifiers in sorted order, for tests.
func (s *Store) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
