package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(t.TempDir(), DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	dir := t.TempDir()
	database, err := Open(dir, OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)

	_, err = database.Conn().ExecContext(context.Background(), "SELECT 1 FROM kv_store LIMIT 0")
	require.NoError(t, err, "kv_store table should exist")
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir, DefaultOpenOptions())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(dir, DefaultOpenOptions())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestQueries_KVRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	_, err := q.KVGet(ctx, "recipes")
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, q.KVSet(ctx, KVSetParams{Key: "recipes", Value: []byte(`[]`), CreatedAt: 1, UpdatedAt: 1}))
	require.NoError(t, q.KVSet(ctx, KVSetParams{Key: "recipes", Value: []byte(`[1]`), CreatedAt: 5, UpdatedAt: 5}))

	row, err := q.KVGet(ctx, "recipes")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1]`), row.Value)
	assert.Equal(t, int64(1), row.CreatedAt, "upsert keeps created_at")
	assert.Equal(t, int64(5), row.UpdatedAt)

	require.NoError(t, q.KVSet(ctx, KVSetParams{Key: "a", Value: []byte(`x`), CreatedAt: 1, UpdatedAt: 1}))
	keys, err := q.KVListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "recipes"}, keys)

	require.NoError(t, q.KVDelete(ctx, "recipes"))
	require.NoError(t, q.KVDelete(ctx, "recipes"), "deleting a missing key is not an error")

	_, err = q.KVGet(ctx, "recipes")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
