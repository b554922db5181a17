package logutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/pantry/internal/core/logging"
)

func TestNew_AppendsJSONToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "pantry.log")

	for i := 0; i < 2; i++ {
		l, closer, err := New("info", file)
		require.NoError(t, err)
		l.Info().Int("run", i).Msg("hello")
		l.Debug().Msg("filtered")
		closer()
	}

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run":0`)
	assert.Contains(t, string(data), `"run":1`)
	assert.NotContains(t, string(data), "filtered")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, closer, err := New("loud", "")
	require.Error(t, err)
	closer()
}

func TestNew_Console(t *testing.T) {
	_, closer, err := New("debug", Console)
	require.NoError(t, err)
	closer()
}

func TestNew_AddsContextFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pantry.log")

	l, closer, err := New("info", file)
	require.NoError(t, err)

	ctx := logging.WithJob(logging.WithRecipeID(context.Background(), "soup"), "cleanup")
	l.Info().Ctx(ctx).Msg("tagged")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recipe_id":"soup"`)
	assert.Contains(t, string(data), `"job":"cleanup"`)
}
