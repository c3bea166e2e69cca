// Package store persists composed documents as one file per subject in a
// single output directory.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"pdfcourier/internal/apperrors"
	"slices"
	"strings"
	"time"
)

// Artifact is a persisted document awaiting delivery.
type Artifact struct {
	ID      string // subject identifier; unique within the store
	Path    string // absolute path
	Size    int64
	ModTime time.Time
}

// Store manages the output directory.
type Store struct {
	dir    string
	ext    string
	logger *slog.Logger
}

// New creates a store, creating the output directory if needed.
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, apperrors.Internal("store.new", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Internal("store.new", fmt.Errorf("create output directory: %w", err))
	}

	return &Store{
		dir:    dir,
		ext:    cfg.Extension,
		logger: slog.With("component", "store", "dir", dir),
	}, nil
}

// Dir returns the absolute output directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the location of the artifact for id, whether or not it exists.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+s.ext)
}

// Save writes data as the artifact for id, replacing any previous one.
// The write goes through a temporary file so a reader never sees a partial document.
func (s *Store) Save(id string, data []byte) (Artifact, error) {
	if err := validateID(id); err != nil {
		return Artifact{}, err
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+".tmp-*")
	if err != nil {
		return Artifact{}, apperrors.Internal("store.save", fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return Artifact{}, apperrors.Internal("store.save", fmt.Errorf("write %s: %w", id, err))
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return Artifact{}, apperrors.Internal("store.save", fmt.Errorf("sync %s: %w", id, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Artifact{}, apperrors.Internal("store.save", fmt.Errorf("close %s: %w", id, err))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return Artifact{}, apperrors.Internal("store.save", err)
	}

	path := s.Path(id)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Artifact{}, apperrors.Internal("store.save", fmt.Errorf("rename %s: %w", id, err))
	}

	s.logger.Debug("Saved artifact", "artifactId", id, "bytes", len(data))
	return s.stat(id)
}

// Exists reports whether an artifact for id is present.
func (s *Store) Exists(id string) bool {
	_, err := s.Get(id)
	return err == nil
}

// Get returns the artifact for id.
func (s *Store) Get(id string) (Artifact, error) {
	if err := validateID(id); err != nil {
		return Artifact{}, err
	}
	return s.stat(id)
}

// List returns every artifact in the output directory, ordered by ID.
// Hidden files, temp files and files with another extension are ignored.
func (s *Store) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.Internal("store.list", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || filepath.Ext(name) != s.ext {
			continue
		}
		a, err := s.stat(strings.TrimSuffix(name, s.ext))
		if err != nil {
			// Removed between ReadDir and Stat.
			continue
		}
		artifacts = append(artifacts, a)
	}

	slices.SortFunc(artifacts, func(a, b Artifact) int { return strings.Compare(a.ID, b.ID) })
	return artifacts, nil
}

// Remove deletes the artifact for id. Removing a missing artifact is not an error.
func (s *Store) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return apperrors.Internal("store.remove", fmt.Errorf("remove %s: %w", id, err))
	}
	s.logger.Debug("Removed artifact", "artifactId", id)
	return nil
}

// Ready verifies the output directory is present and writable.
func (s *Store) Ready() error {
	f, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Store) stat(id string) (Artifact, error) {
	path := s.Path(id)
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, apperrors.Internal("store.stat", err)
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, apperrors.Internal("store.stat", fmt.Errorf("%s is not a regular file", path))
	}
	return Artifact{ID: id, Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// validateID rejects identifiers that would escape the output directory.
func validateID(id string) error {
	switch {
	case id == "":
		return apperrors.Validation("artifactId", "artifact id is required")
	case id == "." || id == "..":
		return apperrors.Validation("artifactId", "path traversal not allowed")
	case strings.ContainsAny(id, `/\`):
		return apperrors.Validation("artifactId", fmt.Sprintf("artifact id %q must not contain path separators", id))
	case strings.HasPrefix(id, "."):
		return apperrors.Validation("artifactId", fmt.Sprintf("artifact id %q must not be hidden", id))
	}
	return nil
}
