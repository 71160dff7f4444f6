package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps rendered export artifacts on disk under a base
// directory. Paths handed to callers are always relative to that base.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes the given bytes to relPath under the base dir, creating
// intermediate date directories as needed.
func (s *LocalStorage) Save(relPath string, data []byte) (string, error) {
	target := s.resolve(relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return relPath, nil
}

// SaveStream copies from the reader into relPath under the base dir.
func (s *LocalStorage) SaveStream(relPath string, r io.Reader) (string, error) {
	target := s.resolve(relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write export stream: %w", err)
	}
	return relPath, nil
}

// Open returns a read-only handle for a stored artifact.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored artifact if present.
func (s *LocalStorage) Delete(relPath string) error {
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes artifacts whose mtime is older than the TTL and
// returns the relative paths it deleted.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup exports: %w", err)
	}
	return deleted, nil
}

// Path returns the absolute on-disk path for a stored artifact.
func (s *LocalStorage) Path(relPath string) string {
	return s.resolve(relPath)
}

// resolve confines every path to the base directory. Leading parent
// references are stripped so a crafted relative path cannot escape it.
func (s *LocalStorage) resolve(relPath string) string {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(relPath, s.baseDir))
	return filepath.Join(s.baseDir, cleaned)
}
