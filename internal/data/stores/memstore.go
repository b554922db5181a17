package stores

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/colonyops/pantry/internal/core/kv"
	pkgkv "github.com/colonyops/pantry/pkg/kv"
)

// MemoryStore implements kv.Medium in process memory. Nothing survives a
// restart; it backs tests and the "memory" storage backend.
type MemoryStore struct {
	data *pkgkv.Store[string, []byte]
}

var (
	_ kv.Medium = (*MemoryStore)(nil)
	_ kv.Lister = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty in-memory medium.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: pkgkv.New[string, []byte]()}
}

// GetItem returns a copy of the stored bytes.
func (s *MemoryStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.data.Get(key)
	if !ok {
		return nil, fmt.Errorf("memory get %q: %w", key, kv.ErrNotFound)
	}
	return bytes.Clone(v), nil
}

// SetItem stores a copy of value.
func (s *MemoryStore) SetItem(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Set(key, bytes.Clone(value))
	return nil
}

// RemoveItem deletes key.
func (s *MemoryStore) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Delete(key)
	return nil
}

// ListKeys returns all keys, sorted.
func (s *MemoryStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := s.data.Keys()
	sort.Strings(keys)
	return keys, nil
}
