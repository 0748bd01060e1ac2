// Package fs implements the storage backend on the local filesystem: one
// text file per kind under a single persistence directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"statecore/internal/storage/core"
)

// Store writes each kind to <dir>/<flattened-kind><ext>. Writes go through a
// temp file and rename so readers never observe a half-written encoding. The
// directory itself is created lazily by EnsureDir; loading never creates
// anything on disk.
type Store struct {
	dir string
	ext string
}

// New returns a filesystem backend rooted at dir using the given file
// extension. Defaults: "./statecore" and ".json".
func New(dir, ext string) *Store {
	if dir == "" {
		dir = "./statecore"
	}
	if ext == "" {
		ext = ".json"
	}
	return &Store{dir: dir, ext: ext}
}

// Driver returns the backend driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFS }

// Dir returns the configured persistence directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns the file path the kind persists to.
func (s *Store) PathFor(kind string) string {
	return filepath.Join(s.dir, core.FileName(kind, s.ext))
}

// Exists reports whether the kind's file is present.
func (s *Store) Exists(_ context.Context, kind string) (bool, error) {
	_, err := os.Stat(s.PathFor(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Read returns the kind's persisted text, or ErrNotFound when absent.
func (s *Store) Read(_ context.Context, kind string) (string, error) {
	b, err := os.ReadFile(s.PathFor(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", kind, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", kind, err)
	}
	return string(b), nil
}

// Write stores text for the kind atomically via temp file and rename.
func (s *Store) Write(_ context.Context, kind, text string) error {
	path := s.PathFor(kind)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", kind, err)
	}
	return nil
}

// Delete removes the kind's file, reporting whether one existed.
func (s *Store) Delete(_ context.Context, kind string) (bool, error) {
	path := s.PathFor(kind)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("delete %s: %w", kind, err)
	}
	return true, nil
}

// EnsureDir creates the persistence directory if necessary.
func (s *Store) EnsureDir(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", s.dir, err)
	}
	return nil
}

// Clear removes every persisted encoding in the directory. Files without the
// configured extension are left alone. A missing directory clears nothing.
func (s *Store) Clear(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", s.dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), s.ext) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("clear %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
