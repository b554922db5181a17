package pantry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"github.com/sourcegraph/conc/pool"

	"github.com/colonyops/pantry/internal/core/logging"
	"github.com/colonyops/pantry/internal/core/placeholder"
	"github.com/colonyops/pantry/internal/core/recipe"
)

// ImageCache is the part of the image cache manager maintenance depends on.
type ImageCache interface {
	IsValid(ctx context.Context, uri string) bool
	FilterValid(ctx context.Context, uris []string) []string
	Preload(ctx context.Context, uris []string) (int, error)
	ClearAll(ctx context.Context) error
}

// MaintenanceOptions configures a Maintenance service.
type MaintenanceOptions struct {
	// Concurrency bounds how many records are processed at once.
	Concurrency int
	// PlaceholderHost is the host whose random URLs get seeded.
	PlaceholderHost string
}

// RecordFailure is one record a job could not process.
type RecordFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

func (f RecordFailure) Error() string {
	return fmt.Sprintf("recipe %q: %v", f.ID, f.Err)
}

func (f RecordFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}{ID: f.ID, Error: f.Err.Error()})
}

// CleanupResult summarises a CleanupInvalidImages run.
type CleanupResult struct {
	RecordsScanned int             `json:"records_scanned"`
	RecordsUpdated int             `json:"records_updated"`
	ImagesRemoved  int             `json:"images_removed"`
	Failures       []RecordFailure `json:"failures"`
}

// RecordHealth is the image health of one recipe.
type RecordHealth struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Total       int      `json:"total"`
	Valid       int      `json:"valid"`
	Invalid     int      `json:"invalid"`
	InvalidURIs []string `json:"invalid_uris"`
}

// HealthReport is the read-only image health of the whole catalog.
type HealthReport struct {
	Records           []RecordHealth `json:"records"`
	TotalRecords      int            `json:"total_records"`
	TotalImages       int            `json:"total_images"`
	ValidImages       int            `json:"valid_images"`
	InvalidImages     int            `json:"invalid_images"`
	RecordsWithIssues int            `json:"records_with_issues"`
}

// Healthy reports whether every image is valid.
func (h HealthReport) Healthy() bool {
	return h.InvalidImages == 0
}

// MigrationResult summarises a MigratePlaceholderURLs run.
type MigrationResult struct {
	RecordsScanned int             `json:"records_scanned"`
	RecordsUpdated int             `json:"records_updated"`
	URLsMigrated   int             `json:"urls_migrated"`
	Failures       []RecordFailure `json:"failures"`
}

// Maintenance runs batch jobs over every stored recipe's images.
//
// Per-record work runs in parallel. A failure on one record never stops the
// others; it is logged and collected in the result's Failures, and the job
// returns the partial result with a nil error. Only a failure to fetch the
// records, or cancellation, fails the job.
type Maintenance struct {
	repo   *Repository
	images ImageCache
	opts   MaintenanceOptions
	logger zerolog.Logger
}

// NewMaintenance creates a Maintenance service.
func NewMaintenance(repo *Repository, images ImageCache, opts MaintenanceOptions, logger zerolog.Logger) *Maintenance {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.PlaceholderHost == "" {
		opts.PlaceholderHost = placeholder.DefaultHost
	}
	return &Maintenance{repo: repo, images: images, opts: opts, logger: logger}
}

// recordOutcome is what one per-record worker reports back.
type recordOutcome struct {
	id      string
	changed bool
	count   int
	err     error
}

// CleanupInvalidImages removes images that fail validation from every
// recipe. Recipes with nothing to remove are not written.
func (m *Maintenance) CleanupInvalidImages(ctx context.Context) (CleanupResult, error) {
	ctx = logging.WithJob(ctx, "cleanup")

	recipes, err := m.fetchAll(ctx)
	if err != nil {
		return CleanupResult{}, err
	}

	outcomes := m.eachRecord(ctx, recipes, func(ctx context.Context, rec recipe.Recipe) recordOutcome {
		valid := m.images.FilterValid(ctx, rec.Images)
		removed := len(rec.Images) - len(valid)
		if removed == 0 {
			return recordOutcome{id: rec.ID}
		}

		if _, err := m.repo.UpdateRecipe(ctx, rec.WithImages(valid)); err != nil {
			return recordOutcome{id: rec.ID, err: err}
		}
		m.logger.Debug().Ctx(ctx).Int("removed", removed).Msg("removed invalid images")
		return recordOutcome{id: rec.ID, changed: true, count: removed}
	})

	res := CleanupResult{RecordsScanned: len(recipes)}
	for _, o := range outcomes {
		if o.changed {
			res.RecordsUpdated++
			res.ImagesRemoved += o.count
		}
	}
	res.Failures = m.failures(ctx, outcomes)

	m.logger.Info().Ctx(ctx).
		Int("scanned", res.RecordsScanned).
		Int("updated", res.RecordsUpdated).
		Int("images_removed", res.ImagesRemoved).
		Int("failures", len(res.Failures)).
		Msg("image cleanup finished")

	return res, ctx.Err()
}

// HealthReport validates every image without changing anything.
func (m *Maintenance) HealthReport(ctx context.Context) (HealthReport, error) {
	ctx = logging.WithJob(ctx, "health")

	recipes, err := m.fetchAll(ctx)
	if err != nil {
		return HealthReport{}, err
	}

	mapper := iter.Mapper[recipe.Recipe, RecordHealth]{MaxGoroutines: m.opts.Concurrency}
	records := mapper.Map(recipes, func(rec *recipe.Recipe) RecordHealth {
		h := RecordHealth{ID: rec.ID, Title: rec.Title, Total: len(rec.Images), InvalidURIs: []string{}}
		for _, uri := range rec.Images {
			if m.images.IsValid(ctx, uri) {
				h.Valid++
			} else {
				h.Invalid++
				h.InvalidURIs = append(h.InvalidURIs, uri)
			}
		}
		return h
	})

	report := HealthReport{Records: records, TotalRecords: len(records)}
	for _, h := range records {
		report.TotalImages += h.Total
		report.ValidImages += h.Valid
		report.InvalidImages += h.Invalid
		if h.Invalid > 0 {
			report.RecordsWithIssues++
		}
	}
	return report, ctx.Err()
}

// PreloadAll hands every unique valid image to the image pipeline and returns
// how many were preloaded.
func (m *Maintenance) PreloadAll(ctx context.Context) (int, error) {
	ctx = logging.WithJob(ctx, "preload")

	recipes, err := m.fetchAll(ctx)
	if err != nil {
		return 0, err
	}

	uris := recipe.Collection(recipes).UniqueImages()
	n, err := m.images.Preload(ctx, uris)
	if err != nil {
		m.logger.Warn().Ctx(ctx).Err(err).Msg("image preload incomplete")
		return n, fmt.Errorf("preload images: %w", err)
	}

	m.logger.Info().Ctx(ctx).Int("images", len(uris)).Int("preloaded", n).Msg("image preload finished")
	return n, nil
}

// RefreshCache clears every image cache and preloads again.
func (m *Maintenance) RefreshCache(ctx context.Context) (int, error) {
	ctx = logging.WithJob(ctx, "refresh")

	if err := m.images.ClearAll(ctx); err != nil {
		return 0, fmt.Errorf("clear image caches: %w", err)
	}
	return m.PreloadAll(ctx)
}

// MigratePlaceholderURLs rewrites random placeholder URLs into their seeded
// form so every render of a recipe shows the same picture.
func (m *Maintenance) MigratePlaceholderURLs(ctx context.Context) (MigrationResult, error) {
	ctx = logging.WithJob(ctx, "migrate")

	recipes, err := m.fetchAll(ctx)
	if err != nil {
		return MigrationResult{}, err
	}

	outcomes := m.eachRecord(ctx, recipes, func(ctx context.Context, rec recipe.Recipe) recordOutcome {
		images, migrated := m.seedImages(rec.Images)
		if migrated == 0 {
			return recordOutcome{id: rec.ID}
		}

		if _, err := m.repo.UpdateRecipe(ctx, rec.WithImages(images)); err != nil {
			return recordOutcome{id: rec.ID, err: err}
		}
		return recordOutcome{id: rec.ID, changed: true, count: migrated}
	})

	res := MigrationResult{RecordsScanned: len(recipes)}
	for _, o := range outcomes {
		if o.changed {
			res.RecordsUpdated++
			res.URLsMigrated += o.count
		}
	}
	res.Failures = m.failures(ctx, outcomes)

	m.logger.Info().Ctx(ctx).
		Int("updated", res.RecordsUpdated).
		Int("urls", res.URLsMigrated).
		Int("failures", len(res.Failures)).
		Msg("placeholder migration finished")

	return res, ctx.Err()
}

func (m *Maintenance) seedImages(images []string) ([]string, int) {
	out := make([]string, len(images))
	migrated := 0
	for i, uri := range images {
		seeded, ok := placeholder.Seeded(uri, m.opts.PlaceholderHost)
		if ok {
			migrated++
		}
		out[i] = seeded
	}
	return out, migrated
}

func (m *Maintenance) fetchAll(ctx context.Context) ([]recipe.Recipe, error) {
	recipes, err := m.repo.GetRecipes(ctx)
	if err != nil {
		m.logger.Error().Ctx(ctx).Err(err).Msg("failed to fetch recipes")
		return nil, fmt.Errorf("fetch recipes: %w", err)
	}
	return recipes, nil
}

// eachRecord runs fn for every recipe on a bounded pool and returns the
// outcomes in completion order.
func (m *Maintenance) eachRecord(
	ctx context.Context,
	recipes []recipe.Recipe,
	fn func(ctx context.Context, rec recipe.Recipe) recordOutcome,
) []recordOutcome {
	p := pool.NewWithResults[recordOutcome]().WithMaxGoroutines(m.opts.Concurrency)
	for _, rec := range recipes {
		p.Go(func() recordOutcome {
			if err := ctx.Err(); err != nil {
				return recordOutcome{id: rec.ID, err: err}
			}
			return fn(logging.WithRecipeID(ctx, rec.ID), rec)
		})
	}
	return p.Wait()
}

// failures collects and logs per-record errors, sorted by id.
func (m *Maintenance) failures(ctx context.Context, outcomes []recordOutcome) []RecordFailure {
	var out []RecordFailure
	for _, o := range outcomes {
		if o.err == nil {
			continue
		}
		if !errors.Is(o.err, context.Canceled) {
			m.logger.Warn().Ctx(logging.WithRecipeID(ctx, o.id)).Err(o.err).Msg("record maintenance failed")
		}
		out = append(out, RecordFailure{ID: o.id, Err: o.err})
	}
	slices.SortFunc(out, func(a, b RecordFailure) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Failed reports whether any record failed.
func (r CleanupResult) Failed() bool { return len(r.Failures) > 0 }

// Failed reports whether any record failed.
func (r MigrationResult) Failed() bool { return len(r.Failures) > 0 }
