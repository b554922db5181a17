package pantry

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/core/recipe"
	"github.com/colonyops/pantry/pkg/sequencer"
	"github.com/colonyops/pantry/pkg/ttl"
)

// DefaultRecordTTL is how long a read of the collection is served from memory.
const DefaultRecordTTL = 5 * time.Minute

// RepositoryOptions configures a Repository.
type RepositoryOptions struct {
	CacheTTL time.Duration
	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// RepositoryStats are cumulative counters since the repository was created.
type RepositoryStats struct {
	Reads              int64 `json:"reads"`
	CacheHits          int64 `json:"cache_hits"`
	ReadFailures       int64 `json:"read_failures"`
	CorruptPayloads    int64 `json:"corrupt_payloads"`
	DroppedRecords     int64 `json:"dropped_records"`
	RepairedFields     int64 `json:"repaired_fields"`
	TimestampFallbacks int64 `json:"timestamp_fallbacks"`
	Writes             int64 `json:"writes"`
	Pending            int   `json:"pending"`
}

// Repository stores the recipe collection as one document. Every
// read-modify-write runs through a FIFO sequencer so concurrent writers never
// lose each other's changes, and reads are served from a short-lived snapshot.
type Repository struct {
	doc    *kv.Document
	seq    *sequencer.Sequencer
	cache  *ttl.Value[recipe.Collection]
	now    func() time.Time
	logger zerolog.Logger

	reads        atomic.Int64
	hits         atomic.Int64
	readFailures atomic.Int64
	corrupt      atomic.Int64
	dropped      atomic.Int64
	repaired     atomic.Int64
	fallbacks    atomic.Int64
	writes       atomic.Int64
}

// NewRepository creates a Repository over doc.
func NewRepository(doc *kv.Document, opts RepositoryOptions, logger zerolog.Logger) *Repository {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultRecordTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Repository{
		doc:    doc,
		seq:    sequencer.New(),
		cache:  ttl.New[recipe.Collection](opts.CacheTTL, opts.Now),
		now:    opts.Now,
		logger: logger,
	}
}

// GetRecipes returns every stored recipe. Storage failures are logged and
// produce an empty collection; only context cancellation is returned.
func (r *Repository) GetRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	if c, ok := r.cache.Get(); ok {
		r.hits.Add(1)
		return c.Clone(), nil
	}

	return sequencer.Run(ctx, r.seq, func(ctx context.Context) ([]recipe.Recipe, error) {
		if c, ok := r.cache.Get(); ok {
			r.hits.Add(1)
			return c.Clone(), nil
		}

		c, err := r.load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.readFailures.Add(1)
			r.logger.Error().Err(err).Str("key", r.doc.Key()).Msg("failed to read recipes, returning empty collection")
			return []recipe.Recipe{}, nil
		}

		r.cache.Set(c)
		return c.Clone(), nil
	})
}

// GetRecipeByID returns the recipe with id. The bool is false when no recipe
// matches.
func (r *Repository) GetRecipeByID(ctx context.Context, id string) (recipe.Recipe, bool, error) {
	all, err := r.GetRecipes(ctx)
	if err != nil {
		return recipe.Recipe{}, false, err
	}

	id = strings.TrimSpace(id)
	if i := recipe.Collection(all).Index(id); i >= 0 {
		return all[i], true, nil
	}
	return recipe.Recipe{}, false, nil
}

// SearchRecipes returns the recipes pred accepts, in stored order.
func (r *Repository) SearchRecipes(ctx context.Context, pred func(recipe.Recipe) bool) ([]recipe.Recipe, error) {
	all, err := r.GetRecipes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]recipe.Recipe, 0, len(all))
	for _, rec := range all {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SearchText matches query against titles and descriptions, ignoring case.
func (r *Repository) SearchText(ctx context.Context, query string) ([]recipe.Recipe, error) {
	return r.SearchRecipes(ctx, func(rec recipe.Recipe) bool { return rec.Matches(query) })
}

// SaveRecipe appends a new recipe. It fails with a ConflictError when the id
// is taken. A zero CreatedAt is set to now; UpdatedAt is always now.
func (r *Repository) SaveRecipe(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	if err := recipe.RequireID(rec.ID); err != nil {
		return recipe.Recipe{}, err
	}

	return sequencer.Run(ctx, r.seq, func(ctx context.Context) (recipe.Recipe, error) {
		c, err := r.load(ctx)
		if err != nil {
			return recipe.Recipe{}, err
		}

		rec = rec.Clone()
		rec.ID = strings.TrimSpace(rec.ID)
		if c.Index(rec.ID) >= 0 {
			return recipe.Recipe{}, &recipe.ConflictError{ID: rec.ID}
		}

		now := r.now()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now

		if err := r.persist(ctx, append(c, rec)); err != nil {
			return recipe.Recipe{}, err
		}

		r.logger.Debug().Str("recipe_id", rec.ID).Msg("recipe saved")
		return rec.Clone(), nil
	})
}

// UpdateRecipe replaces an existing recipe in place. The stored CreatedAt is
// kept whatever the caller passes, and UpdatedAt always moves forward.
func (r *Repository) UpdateRecipe(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	if err := recipe.RequireID(rec.ID); err != nil {
		return recipe.Recipe{}, err
	}

	return sequencer.Run(ctx, r.seq, func(ctx context.Context) (recipe.Recipe, error) {
		c, err := r.load(ctx)
		if err != nil {
			return recipe.Recipe{}, err
		}

		rec = rec.Clone()
		rec.ID = strings.TrimSpace(rec.ID)
		i := c.Index(rec.ID)
		if i < 0 {
			return recipe.Recipe{}, &recipe.NotFoundError{ID: rec.ID}
		}

		stored := c[i]
		rec.CreatedAt = stored.CreatedAt
		rec.UpdatedAt = r.nextUpdatedAt(stored.UpdatedAt)
		c[i] = rec

		if err := r.persist(ctx, c); err != nil {
			return recipe.Recipe{}, err
		}

		r.logger.Debug().Str("recipe_id", rec.ID).Msg("recipe updated")
		return rec.Clone(), nil
	})
}

// DeleteRecipe removes the recipe with id or fails with a NotFoundError.
func (r *Repository) DeleteRecipe(ctx context.Context, id string) error {
	if err := recipe.RequireID(id); err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	return r.seq.Do(ctx, func(ctx context.Context) error {
		c, err := r.load(ctx)
		if err != nil {
			return err
		}

		i := c.Index(id)
		if i < 0 {
			return &recipe.NotFoundError{ID: id}
		}

		out := make(recipe.Collection, 0, len(c)-1)
		out = append(out, c[:i]...)
		out = append(out, c[i+1:]...)
		if err := r.persist(ctx, out); err != nil {
			return err
		}

		r.logger.Debug().Str("recipe_id", id).Msg("recipe deleted")
		return nil
	})
}

// DeleteRecipes removes every recipe whose id is in ids in a single write.
// Unknown ids are ignored. An empty list does not touch storage.
func (r *Repository) DeleteRecipes(ctx context.Context, ids []string) (int, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			want[id] = struct{}{}
		}
	}
	if len(want) == 0 {
		return 0, nil
	}

	return sequencer.Run(ctx, r.seq, func(ctx context.Context) (int, error) {
		c, err := r.load(ctx)
		if err != nil {
			return 0, err
		}

		out := make(recipe.Collection, 0, len(c))
		for _, rec := range c {
			if _, ok := want[rec.ID]; !ok {
				out = append(out, rec)
			}
		}

		removed := len(c) - len(out)
		if removed == 0 {
			return 0, nil
		}
		if err := r.persist(ctx, out); err != nil {
			return 0, err
		}

		r.logger.Debug().Int("removed", removed).Msg("recipes deleted")
		return removed, nil
	})
}

// ClearAllRecipes removes the stored collection entirely.
func (r *Repository) ClearAllRecipes(ctx context.Context) error {
	return r.seq.Do(ctx, func(ctx context.Context) error {
		defer r.cache.Invalidate()

		if err := r.doc.Clear(ctx); err != nil {
			return &recipe.StorageError{Op: "clear", Err: err}
		}
		r.writes.Add(1)
		r.logger.Info().Str("key", r.doc.Key()).Msg("all recipes cleared")
		return nil
	})
}

// InvalidateCache drops the in-memory snapshot so the next read goes to
// storage. Used when another process changes the stored document.
func (r *Repository) InvalidateCache() {
	r.cache.Invalidate()
}

// Stats returns the repository counters.
func (r *Repository) Stats() RepositoryStats {
	return RepositoryStats{
		Reads:              r.reads.Load(),
		CacheHits:          r.hits.Load(),
		ReadFailures:       r.readFailures.Load(),
		CorruptPayloads:    r.corrupt.Load(),
		DroppedRecords:     r.dropped.Load(),
		RepairedFields:     r.repaired.Load(),
		TimestampFallbacks: r.fallbacks.Load(),
		Writes:             r.writes.Load(),
		Pending:            r.seq.Pending(),
	}
}

// load reads and decodes the stored collection. It must run inside the
// sequencer.
func (r *Repository) load(ctx context.Context) (recipe.Collection, error) {
	r.reads.Add(1)

	raw, err := r.doc.Read(ctx)
	if err != nil {
		return nil, &recipe.StorageError{Op: "read", Err: err}
	}

	c, stats := recipe.DecodeCollection(raw, r.now())
	if stats.Corrupt {
		r.corrupt.Add(1)
		r.logger.Warn().Str("key", r.doc.Key()).Int("bytes", len(raw)).Msg("stored recipes are not a JSON array, treating as empty")
	}
	if stats.DroppedRecords > 0 {
		r.dropped.Add(int64(stats.DroppedRecords))
		r.logger.Warn().Int("dropped", stats.DroppedRecords).Msg("dropped malformed stored recipes")
	}
	if stats.FieldRepairs > 0 {
		r.repaired.Add(int64(stats.FieldRepairs))
		r.logger.Warn().Int("fields", stats.FieldRepairs).Msg("coerced wrong-typed fields in stored recipes")
	}
	if stats.TimestampFallbacks > 0 {
		r.fallbacks.Add(int64(stats.TimestampFallbacks))
		r.logger.Warn().Int("fallbacks", stats.TimestampFallbacks).Msg("unparsable recipe timestamps replaced with current time")
	}
	return c, nil
}

// persist writes c and invalidates the snapshot whether or not the write
// landed. It must run inside the sequencer.
func (r *Repository) persist(ctx context.Context, c recipe.Collection) error {
	defer r.cache.Invalidate()

	data, err := recipe.EncodeCollection(c)
	if err != nil {
		return &recipe.StorageError{Op: "encode", Err: err}
	}
	if err := r.doc.Write(ctx, data); err != nil {
		return &recipe.StorageError{Op: "write", Err: err}
	}
	r.writes.Add(1)
	return nil
}

// nextUpdatedAt returns now, or prev plus a millisecond when the clock has
// not moved past prev.
func (r *Repository) nextUpdatedAt(prev time.Time) time.Time {
	now := r.now()
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}
