package stores

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/data/db"
)

func newTestKVStore(t *testing.T) (*KVStore, string) {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewKVStore(database), dir
}

func TestKVStore_RecipeDocumentSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestKVStore(t)

	payload := []byte(`[{"id":"soup","title":"Soup","images":[]}]`)
	require.NoError(t, store.SetItem(ctx, "recipes", payload))

	reopened, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := NewKVStore(reopened).GetItem(ctx, "recipes")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestKVStore_RemoveMissingIsNoop(t *testing.T) {
	store, _ := newTestKVStore(t)
	assert.NoError(t, store.RemoveItem(context.Background(), "nothing"))
}

func TestKVStore_GetMissingWrapsNotFound(t *testing.T) {
	store, _ := newTestKVStore(t)

	_, err := store.GetItem(context.Background(), "recipes")
	require.ErrorIs(t, err, kv.ErrNotFound)
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), `"recipes"`)
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(fmt.Errorf("wrap: %w", kv.ErrNotFound)))
	assert.False(t, IsNotFoundError(errors.New("boom")))
	assert.False(t, IsNotFoundError(nil))
}

func TestIsCorruptionError(t *testing.T) {
	assert.True(t, IsCorruptionError(errors.New("database disk image is malformed")))
	assert.True(t, IsCorruptionError(errors.New("file is not a database")))
	assert.False(t, IsCorruptionError(errors.New("database is locked")))
	assert.False(t, IsCorruptionError(nil))
	assert.False(t, IsBusyError(errors.New("database is locked")))
}

func TestOpen_CorruptFileRecovers(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)
	require.NoError(t, os.WriteFile(dbPath, []byte(strings.Repeat("corrupted data ", 512)), 0o644))

	_, err := db.Open(dir, db.DefaultOpenOptions())
	require.Error(t, err)
	require.True(t, IsCorruptionError(err), "unexpected error: %v", err)

	require.NoError(t, RecoverFromCorruption(dir))

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	backups, err := filepath.Glob(filepath.Join(dir, db.FileName+".corrupt.*"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRecoverFromCorruption_MovesWALAndSHM(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)

	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted data"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("wal data"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-shm", []byte("shm data"), 0o644))

	require.NoError(t, RecoverFromCorruption(dir))

	for _, suffix := range []string{"", "-wal", "-shm"} {
		_, err := os.Stat(dbPath + suffix)
		assert.True(t, os.IsNotExist(err), "%s should be moved aside", db.FileName+suffix)

		backups, _ := filepath.Glob(filepath.Join(dir, db.FileName+".corrupt.*"+suffix))
		assert.NotEmpty(t, backups, "missing backup for %q", suffix)
	}
}

func TestRecoverFromCorruption_MissingFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, RecoverFromCorruption(dir))

	files, _ := filepath.Glob(filepath.Join(dir, "*.corrupt.*"))
	assert.Empty(t, files)
}

func TestRecoverFromCorruption_WALWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, db.FileName) + "-wal"
	require.NoError(t, os.WriteFile(walPath, []byte("wal data"), 0o644))

	require.NoError(t, RecoverFromCorruption(dir))

	walBackups, _ := filepath.Glob(filepath.Join(dir, "*.corrupt.*-wal"))
	assert.Len(t, walBackups, 1)

	_, err := os.Stat(walPath)
	assert.True(t, os.IsNotExist(err))
}
