package pantry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/pantry/internal/core/placeholder"
	"github.com/colonyops/pantry/internal/core/recipe"
)

// fakeImages treats every URI containing "bad" as invalid.
type fakeImages struct {
	mu         sync.Mutex
	preloaded  []string
	cleared    int
	preloadErr error
	clearErr   error
}

func (f *fakeImages) IsValid(_ context.Context, uri string) bool {
	return !strings.Contains(uri, "bad")
}

func (f *fakeImages) FilterValid(ctx context.Context, uris []string) []string {
	out := []string{}
	for _, u := range uris {
		if f.IsValid(ctx, u) {
			out = append(out, u)
		}
	}
	return out
}

func (f *fakeImages) Preload(ctx context.Context, uris []string) (int, error) {
	valid := f.FilterValid(ctx, uris)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloaded = append(f.preloaded, valid...)
	if f.preloadErr != nil {
		return 0, f.preloadErr
	}
	return len(valid), nil
}

func (f *fakeImages) ClearAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.preloaded = nil
	return f.clearErr
}

func newTestMaintenance(t *testing.T) (*Maintenance, *Repository, *recordingMedium, *fakeImages) {
	t.Helper()
	repo, medium, _ := newTestRepository(t)
	images := &fakeImages{}
	m := NewMaintenance(repo, images, MaintenanceOptions{Concurrency: 2}, zerolog.Nop())
	return m, repo, medium, images
}

func seed(t *testing.T, repo *Repository, recipes ...recipe.Recipe) {
	t.Helper()
	for _, r := range recipes {
		_, err := repo.SaveRecipe(context.Background(), r)
		require.NoError(t, err)
	}
}

func TestMaintenance_CleanupInvalidImages(t *testing.T) {
	ctx := context.Background()
	m, repo, medium, _ := newTestMaintenance(t)
	seed(t, repo,
		recipe.Recipe{ID: "a", Title: "A", Images: []string{"https://x.io/1.jpg", "https://bad.io/2.jpg", "https://x.io/3.jpg"}},
		recipe.Recipe{ID: "b", Title: "B", Images: []string{"https://x.io/4.jpg"}},
		recipe.Recipe{ID: "c", Title: "C", Images: []string{"https://bad.io/5.jpg", "https://bad.io/6.jpg"}},
	)
	medium.Reset()

	res, err := m.CleanupInvalidImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RecordsScanned)
	assert.Equal(t, 2, res.RecordsUpdated)
	assert.Equal(t, 3, res.ImagesRemoved)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 2, medium.count("write"), "unchanged records are not written")

	a, _, err := repo.GetRecipeByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.io/1.jpg", "https://x.io/3.jpg"}, a.Images, "order preserved")

	c, _, err := repo.GetRecipeByID(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, c.Images)
}

func TestMaintenance_CleanupIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	m, repo, medium, _ := newTestMaintenance(t)
	seed(t, repo,
		recipe.Recipe{ID: "a", Title: "A", Images: []string{"https://bad.io/1.jpg"}},
		recipe.Recipe{ID: "b", Title: "B", Images: []string{"https://bad.io/2.jpg"}},
		recipe.Recipe{ID: "c", Title: "C", Images: []string{"https://bad.io/3.jpg"}},
	)
	medium.mu.Lock()
	medium.failWrites = 1
	medium.mu.Unlock()

	res, err := m.CleanupInvalidImages(ctx)
	require.NoError(t, err, "per-record failures do not fail the job")
	assert.Equal(t, 2, res.RecordsUpdated)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, recipe.ErrStorage)
	assert.True(t, res.Failed())

	all, err := repo.GetRecipes(ctx)
	require.NoError(t, err)
	remaining := 0
	for _, r := range all {
		remaining += len(r.Images)
	}
	assert.Equal(t, 1, remaining, "only the failed record keeps its invalid image")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"storage write`)
}

func TestMaintenance_FetchFailureAbortsJob(t *testing.T) {
	m, _, _, _ := newTestMaintenance(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.CleanupInvalidImages(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMaintenance_HealthReport(t *testing.T) {
	ctx := context.Background()
	m, repo, medium, _ := newTestMaintenance(t)
	seed(t, repo,
		recipe.Recipe{ID: "a", Title: "A", Images: []string{"https://x.io/1.jpg", "https://bad.io/2.jpg"}},
		recipe.Recipe{ID: "b", Title: "B", Images: []string{}},
	)
	medium.Reset()

	report, err := m.HealthReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRecords)
	assert.Equal(t, 2, report.TotalImages)
	assert.Equal(t, 1, report.ValidImages)
	assert.Equal(t, 1, report.InvalidImages)
	assert.Equal(t, 1, report.RecordsWithIssues)
	assert.False(t, report.Healthy())

	require.Len(t, report.Records, 2)
	assert.Equal(t, "a", report.Records[0].ID)
	assert.Equal(t, []string{"https://bad.io/2.jpg"}, report.Records[0].InvalidURIs)
	assert.Equal(t, 0, medium.count("write"), "health report is read-only")
}

func TestMaintenance_PreloadAll(t *testing.T) {
	ctx := context.Background()
	m, repo, _, images := newTestMaintenance(t)
	seed(t, repo,
		recipe.Recipe{ID: "a", Title: "A", Images: []string{"https://x.io/1.jpg", "https://bad.io/2.jpg"}},
		recipe.Recipe{ID: "b", Title: "B", Images: []string{"https://x.io/1.jpg", "https://x.io/3.jpg"}},
	)

	n, err := m.PreloadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"https://x.io/1.jpg", "https://x.io/3.jpg"}, images.preloaded)
}

func TestMaintenance_RefreshCache(t *testing.T) {
	ctx := context.Background()
	m, repo, _, images := newTestMaintenance(t)
	seed(t, repo, recipe.Recipe{ID: "a", Title: "A", Images: []string{"https://x.io/1.jpg"}})

	n, err := m.RefreshCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, images.cleared)

	images.clearErr = errors.New("disk busy")
	_, err = m.RefreshCache(ctx)
	require.Error(t, err)
}

func TestMaintenance_MigratePlaceholderURLs(t *testing.T) {
	ctx := context.Background()
	m, repo, medium, _ := newTestMaintenance(t)
	random := "https://picsum.photos/400/300?random=1"
	seed(t, repo,
		recipe.Recipe{ID: "a", Title: "A", Images: []string{random, "file:///data/photo.jpg"}},
		recipe.Recipe{ID: "b", Title: "B", Images: []string{"https://picsum.photos/seed/x/400/300"}},
	)
	medium.Reset()

	res, err := m.MigratePlaceholderURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordsUpdated)
	assert.Equal(t, 1, res.URLsMigrated)
	assert.Equal(t, 1, medium.count("write"))

	a, _, err := repo.GetRecipeByID(ctx, "a")
	require.NoError(t, err)
	want, _ := placeholder.Seeded(random, placeholder.DefaultHost)
	assert.Equal(t, []string{want, "file:///data/photo.jpg"}, a.Images)

	res, err = m.MigratePlaceholderURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.URLsMigrated, "migration is idempotent")
}
