package stores

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) (*FileStore, *Watcher) {
	t.Helper()
	store := NewFileStore(t.TempDir())
	w, err := NewWatcher(store, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return store, w
}

func TestWatcher_NotifiesOnSet(t *testing.T) {
	store, w := newTestWatcher(t)

	changed := make(chan struct{}, 1)
	w.OnChange("recipes", func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	require.NoError(t, store.SetItem(context.Background(), "recipes", []byte(`[]`)))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}
}

func TestWatcher_NotifiesForKeyWithUnderscore(t *testing.T) {
	store, w := newTestWatcher(t)

	var calls atomic.Int32
	w.OnChange("my_recipes", func() { calls.Add(1) })

	require.NoError(t, store.SetItem(context.Background(), "my_recipes", []byte(`[]`)))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherKeys(t *testing.T) {
	store, w := newTestWatcher(t)

	var calls atomic.Int32
	w.OnChange("recipes", func() { calls.Add(1) })

	require.NoError(t, store.SetItem(context.Background(), "other", []byte(`[]`)))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcher_Debounces(t *testing.T) {
	store, w := newTestWatcher(t)

	var calls atomic.Int32
	w.OnChange("recipes", func() { calls.Add(1) })

	for range 5 {
		require.NoError(t, store.SetItem(context.Background(), "recipes", []byte(`[]`)))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst of writes should produce one notification")
}

func TestWatcher_NotifiesOnRemove(t *testing.T) {
	store, w := newTestWatcher(t)
	ctx := context.Background()
	require.NoError(t, store.SetItem(ctx, "recipes", []byte(`[]`)))
	time.Sleep(100 * time.Millisecond)

	var calls atomic.Int32
	w.OnChange("recipes", func() { calls.Add(1) })

	require.NoError(t, store.RemoveItem(ctx, "recipes"))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}
