package pantry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/pantry/internal/core/config"
	"github.com/colonyops/pantry/internal/core/doctor"
	"github.com/colonyops/pantry/internal/core/recipe"
)

func openTestApp(t *testing.T, backend string) *App {
	t.Helper()

	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	cfg.Storage.Backend = backend

	app, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			app := openTestApp(t, backend)
			ctx := context.Background()

			_, err := app.Recipes.SaveRecipe(ctx, recipe.Recipe{
				ID:     "soup",
				Title:  "Soup",
				Images: []string{"https://picsum.photos/seed/soup/200/200"},
			})
			require.NoError(t, err)

			app.Recipes.InvalidateCache()
			got, found, err := app.Recipes.GetRecipeByID(ctx, "soup")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "Soup", got.Title)

			if backend == config.BackendSQLite {
				assert.NotNil(t, app.DB)
				assert.FileExists(t, filepath.Join(app.Config.DataDir, "pantry.db"))
			} else {
				assert.Nil(t, app.DB)
			}
		})
	}
}

func TestOpen_DoctorPassesOnHealthyCatalog(t *testing.T) {
	app := openTestApp(t, config.BackendFile)
	ctx := context.Background()

	_, err := app.Recipes.SaveRecipe(ctx, recipe.Recipe{
		ID:     "bread",
		Title:  "Bread",
		Images: []string{"https://picsum.photos/seed/bread/200/200"},
	})
	require.NoError(t, err)

	results := app.Doctor.RunChecks(ctx, "", false)
	require.Len(t, results, 3)
	assert.False(t, doctor.Failed(results))

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Configuration", "Storage", "Images"}, names)
}

func TestOpen_DoctorAutofixRemovesInvalidImages(t *testing.T) {
	app := openTestApp(t, config.BackendMemory)
	ctx := context.Background()

	_, err := app.Recipes.SaveRecipe(ctx, recipe.Recipe{
		ID:     "stew",
		Title:  "Stew",
		Images: []string{"https://picsum.photos/seed/stew/200/200", "not a uri"},
	})
	require.NoError(t, err)

	_ = app.Doctor.RunChecks(ctx, "", true)

	got, found, err := app.Recipes.GetRecipeByID(ctx, "stew")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"https://picsum.photos/seed/stew/200/200"}, got.Images)
}

func TestOpen_WatcherInvalidatesOnExternalWrite(t *testing.T) {
	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	cfg.Storage.Watch = true

	app, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	require.NotNil(t, app.Watcher)

	ctx := context.Background()
	recipes, err := app.Recipes.GetRecipes(ctx)
	require.NoError(t, err)
	assert.Empty(t, recipes)

	path := filepath.Join(cfg.StorageDir(), cfg.Storage.Key+".json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"tea","title":"Tea","images":[]}]`), 0o644))

	assert.Eventually(t, func() bool {
		recipes, err := app.Recipes.GetRecipes(ctx)
		return err == nil && len(recipes) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
