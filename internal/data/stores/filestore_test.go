package stores

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_WritesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewFileStore(dir)

	require.NoError(t, s.SetItem(context.Background(), "recipes", []byte(`[]`)))

	data, err := os.ReadFile(filepath.Join(dir, "recipes.json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	_, err = os.Stat(filepath.Join(dir, "recipes.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestFileStore_ReadError(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	// A directory where the key file should be cannot be read as a file.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "recipes.json"), 0o755))

	_, err := s.GetItem(context.Background(), "recipes")
	require.Error(t, err)
	assert.False(t, IsNotFoundError(err))
}

func TestFileNameRoundTrip(t *testing.T) {
	for _, key := range []string{"recipes", "backup/recipes", "my_recipes", "a_b/c", "100%"} {
		assert.Equal(t, key, keyFromFile(fileName(key)))
	}
}

func TestFileStore_SlashAndUnderscoreKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.SetItem(ctx, "a/b", []byte("slash")))
	require.NoError(t, store.SetItem(ctx, "a_b", []byte("underscore")))

	got, err := store.GetItem(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "slash", string(got))

	got, err = store.GetItem(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, "underscore", string(got))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "a_b"}, keys)
}
