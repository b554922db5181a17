package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/data/db"
)

const (
	busyRetries   = 3
	busyRetryWait = 50 * time.Millisecond
)

// KVStore implements kv.Medium using SQLite.
type KVStore struct {
	db  *db.DB
	now func() time.Time
}

var (
	_ kv.Medium = (*KVStore)(nil)
	_ kv.Lister = (*KVStore)(nil)
)

// NewKVStore creates a new SQLite-backed medium.
func NewKVStore(db *db.DB) *KVStore {
	return &KVStore{db: db, now: time.Now}
}

// GetItem returns the stored bytes or an error wrapping kv.ErrNotFound.
func (s *KVStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	row, err := s.db.Queries().KVGet(ctx, key)
	if IsNotFoundError(err) {
		return nil, fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return row.Value, nil
}

// SetItem upserts the value. SQLITE_BUSY is retried a few times before the
// error is returned.
func (s *KVStore) SetItem(ctx context.Context, key string, value []byte) error {
	now := s.now().UnixNano()
	params := db.KVSetParams{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var err error
	wait := busyRetryWait
	for attempt := 0; attempt <= busyRetries; attempt++ {
		err = s.db.Queries().KVSet(ctx, params)
		if err == nil || !IsBusyError(err) {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("kv set %q: %w", key, ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}

	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the key.
func (s *KVStore) RemoveItem(ctx context.Context, key string) error {
	if err := s.db.Queries().KVDelete(ctx, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// ListKeys returns all keys in sorted order.
func (s *KVStore) ListKeys(ctx context.Context) ([]string, error) {
	keys, err := s.db.Queries().KVListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("kv list keys: %w", err)
	}
	return keys, nil
}
