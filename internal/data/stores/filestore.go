package stores

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/colonyops/pantry/internal/core/kv"
)

// FileExt is appended to a key to form its file name.
const FileExt = ".json"

// FileStore implements kv.Medium with one file per key in a directory.
// Writes go to a temp file first and are renamed into place.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

var (
	_ kv.Medium = (*FileStore)(nil)
	_ kv.Lister = (*FileStore)(nil)
)

// NewFileStore creates a file medium rooted at dir. The directory is created
// on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory holding the key files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

// GetItem reads the file for key. A missing file is kv.ErrNotFound.
func (s *FileStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file get %q: %w", key, kv.ErrNotFound)
		}
		return nil, fmt.Errorf("file get %q: %w", key, err)
	}
	return data, nil
}

// SetItem writes the value atomically.
func (s *FileStore) SetItem(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("file set %q: %w", key, err)
	}

	path := s.Path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("file set %q: %w", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the file for key.
func (s *FileStore) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file remove %q: %w", key, err)
	}
	return nil
}

// ListKeys returns the keys that have a file, sorted.
func (s *FileStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file list keys: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		keys = append(keys, keyFromFile(e.Name()))
	}
	sort.Strings(keys)
	return keys, nil
}

// fileName maps a key to a file name. Keys are path escaped so "/" never
// reaches the file system and every name maps back to exactly one key.
func fileName(key string) string {
	return url.PathEscape(key) + FileExt
}

func keyFromFile(name string) string {
	base := strings.TrimSuffix(name, FileExt)
	key, err := url.PathUnescape(base)
	if err != nil {
		return base
	}
	return key
}
