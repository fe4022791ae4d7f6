package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadStatus describes what Load found on disk.
type LoadStatus int

const (
	StatusMissing LoadStatus = iota
	StatusLoaded
	StatusMigrated
	StatusCorrupt
)

func (s LoadStatus) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusLoaded:
		return "loaded"
	case StatusMigrated:
		return "migrated"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Store reads and writes the manifest of one stage run directory. It assumes
// a single writer.
type Store struct {
	dir  string
	path string
}

// Open returns the store for runDir. Nothing is touched on disk until Update.
func Open(runDir string) *Store {
	return &Store{dir: runDir, path: filepath.Join(runDir, FileName)}
}

// Path returns the manifest file path.
func (s *Store) Path() string { return s.path }

// Load reads the manifest. It never fails: absent or damaged files yield an
// empty manifest.
func (s *Store) Load() (*Manifest, LoadStatus) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), StatusMissing
		}
		return New(), StatusCorrupt
	}
	m, status, err := decode(data)
	if err != nil {
		return New(), StatusCorrupt
	}
	return m, status
}

func decode(data []byte) (*Manifest, LoadStatus, error) {
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, StatusCorrupt, err
	}
	if header.SchemaVersion < SchemaVersion {
		m, err := migrateV1(data)
		if err != nil {
			return nil, StatusCorrupt, err
		}
		return m, StatusMigrated, nil
	}
	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, StatusCorrupt, err
	}
	return m, StatusLoaded, nil
}

// Update loads the manifest, applies fn, stamps the schema version, and
// writes the result atomically.
func (s *Store) Update(fn func(*Manifest)) (*Manifest, error) {
	m, _ := s.Load()
	fn(m)
	m.SchemaVersion = SchemaVersion
	if err := s.write(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Merge folds patch into the stored manifest.
func (s *Store) Merge(patch Manifest) (*Manifest, error) {
	return s.Update(func(m *Manifest) { m.Merge(patch) })
}

func (s *Store) write(m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create stage directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
