package stores

import (
	"context"
	"testing"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type medium interface {
	kv.Medium
	kv.Lister
}

func newTestKVStore(t *testing.T) *KVStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewKVStore(database)
}

func media(t *testing.T) map[string]medium {
	return map[string]medium{
		"file":   NewFileStore(t.TempDir()),
		"sqlite": newTestKVStore(t),
		"memory": NewMemoryStore(),
	}
}

func TestMedium_GetMissing(t *testing.T) {
	for name, m := range media(t) {
		t.Run(name, func(t *testing.T) {
			_, err := m.GetItem(context.Background(), "recipes")
			assert.ErrorIs(t, err, kv.ErrNotFound)
			assert.True(t, IsNotFoundError(err))
		})
	}
}

func TestMedium_SetGetOverwrite(t *testing.T) {
	for name, m := range media(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, m.SetItem(ctx, "recipes", []byte(`[{"id":"1"}]`)))
			require.NoError(t, m.SetItem(ctx, "recipes", []byte(`[]`)))

			got, err := m.GetItem(ctx, "recipes")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[]`), got)
		})
	}
}

func TestMedium_Remove(t *testing.T) {
	for name, m := range media(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, m.SetItem(ctx, "recipes", []byte(`[]`)))
			require.NoError(t, m.RemoveItem(ctx, "recipes"))
			require.NoError(t, m.RemoveItem(ctx, "recipes"), "removing twice is fine")

			_, err := m.GetItem(ctx, "recipes")
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}

func TestMedium_ListKeys(t *testing.T) {
	for name, m := range media(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			keys, err := m.ListKeys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys)

			require.NoError(t, m.SetItem(ctx, "recipes", []byte(`[]`)))
			require.NoError(t, m.SetItem(ctx, "backup/recipes", []byte(`[]`)))

			keys, err = m.ListKeys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"backup/recipes", "recipes"}, keys)
		})
	}
}

func TestMedium_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, m := range map[string]medium{
		"file":   NewFileStore(t.TempDir()),
		"memory": NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, m.SetItem(ctx, "k", []byte("v")), context.Canceled)
			_, err := m.GetItem(ctx, "k")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, m.SetItem(ctx, "k", value))
	value[0] = 'z'

	got, err := m.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
