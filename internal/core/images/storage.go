package images

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage is the local key/value store pictures are cached in.
type Storage interface {
	// Exists reports whether key holds data. Lookup errors count as absent.
	Exists(key string) bool

	// Get returns the data for key. A missing key returns (nil, false, nil).
	Get(key string) ([]byte, bool, error)

	// Set stores data under key, replacing any previous value.
	Set(key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// DiskStorage stores each key as one file under basePath.
type DiskStorage struct {
	basePath string
	tempTTL  time.Duration
}

// NewDiskStorage creates a DiskStorage. Entries under TempPrefix keys older than tempTTL
// are removed by Cleanup; a zero tempTTL keeps them forever.
func NewDiskStorage(basePath string, tempTTL time.Duration) (*DiskStorage, error) {
	if basePath == "" {
		return nil, ErrInvalidStoragePath
	}
	if tempTTL < 0 {
		return nil, errors.New("tempTTL cannot be negative")
	}
	return &DiskStorage{basePath: basePath, tempTTL: tempTTL}, nil
}

// makeKeySafe converts a key to a single filesystem-safe path element by removing
// path separators, traversal sequences and null bytes.
func makeKeySafe(key string) string {
	s := strings.ReplaceAll(key, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

func (s *DiskStorage) path(key string) string {
	return filepath.Join(s.basePath, makeKeySafe(key))
}

// Exists reports whether a file exists for key.
func (s *DiskStorage) Exists(key string) bool {
	if key == "" {
		return false
	}
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Get reads the file for key.
func (s *DiskStorage) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set writes the file for key atomically (temp file, then rename). Concurrent writers
// of the same key each use their own temp file; the last rename wins.
func (s *DiskStorage) Set(key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".write-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Delete removes the file for key.
func (s *DiskStorage) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Cleanup removes temporary entries older than the configured TTL and returns how many
// were removed.
func (s *DiskStorage) Cleanup() (int, error) {
	if s.tempTTL <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.tempTTL)
	removed := 0

	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), TempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			slog.Warn("[FB-IMAGES] failed to stat file during cleanup", "path", path, "error", err)
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("[FB-IMAGES] failed to remove expired temp entry", "path", path, "error", err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return removed, err
	}

	if removed > 0 {
		slog.Info("[FB-IMAGES] temp cleanup completed", "entries_removed", removed)
	}
	return removed, nil
}

// StartCleanupJob runs Cleanup every interval until the returned cancel function is
// called. A non-positive interval starts nothing.
func (s *DiskStorage) StartCleanupJob(interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Cleanup(); err != nil {
					slog.Error("[FB-IMAGES] temp cleanup failed", "error", err)
				}
			}
		}
	}()
	return cancel
}
