package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/data/stores"
)

type brokenMedium struct{ err error }

func (b brokenMedium) GetItem(context.Context, string) ([]byte, error) { return nil, b.err }
func (b brokenMedium) SetItem(context.Context, string, []byte) error   { return b.err }
func (b brokenMedium) RemoveItem(context.Context, string) error        { return b.err }

func TestDocument_ReadAbsent(t *testing.T) {
	doc := kv.NewDocument(stores.NewMemoryStore(), "recipes")

	data, err := doc.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDocument_WriteReadClear(t *testing.T) {
	ctx := context.Background()
	medium := stores.NewMemoryStore()
	doc := kv.NewDocument(medium, "recipes")

	require.NoError(t, doc.Write(ctx, []byte(`[]`)))

	data, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), data)

	raw, err := medium.GetItem(ctx, "recipes")
	require.NoError(t, err)
	assert.Equal(t, data, raw, "document stores under its key")

	require.NoError(t, doc.Clear(ctx))
	data, err = doc.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDocument_ErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	doc := kv.NewDocument(brokenMedium{err: boom}, "recipes")

	_, err := doc.Read(ctx)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"recipes"`)

	assert.ErrorIs(t, doc.Write(ctx, []byte("x")), boom)
	assert.ErrorIs(t, doc.Clear(ctx), boom)
}
