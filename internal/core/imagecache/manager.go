// Package imagecache decides whether image URIs are loadable, remembers the
// answers for a while, and hands valid images to the rendering pipeline.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/singleflight"

	"github.com/colonyops/pantry/pkg/kv"
)

// DefaultTrustedDomains are image hosts accepted without a network check.
var DefaultTrustedDomains = []string{
	"picsum.photos",
	"*.picsum.photos",
	"images.unsplash.com",
	"*.unsplash.com",
	"images.pexels.com",
	"via.placeholder.com",
	"placehold.co",
	"*.cloudinary.com",
}

// Config controls validation caching.
type Config struct {
	TTL            time.Duration
	Capacity       int
	CheckTimeout   time.Duration
	TrustedDomains []string
}

// DefaultConfig returns the standard TTL, capacity and timeout.
func DefaultConfig() Config {
	return Config{
		TTL:            5 * time.Minute,
		Capacity:       100,
		CheckTimeout:   3 * time.Second,
		TrustedDomains: DefaultTrustedDomains,
	}
}

type entry struct {
	Valid     bool
	CheckedAt time.Time
}

// Stats are cumulative validation counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Checks  int64 `json:"checks"`
	Swept   int64 `json:"swept"`
}

// Manager validates image URIs and caches the results.
type Manager struct {
	cfg      Config
	checker  Checker
	pipeline Pipeline
	logger   zerolog.Logger
	now      func() time.Time

	entries *kv.Store[string, entry]
	group   singleflight.Group

	hits   atomic.Int64
	checks atomic.Int64
	swept  atomic.Int64
}

// NewManager builds a Manager. A nil pipeline discards preloads.
func NewManager(cfg Config, checker Checker, pipeline Pipeline, logger zerolog.Logger) *Manager {
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaults.Capacity
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = defaults.CheckTimeout
	}
	if cfg.TrustedDomains == nil {
		cfg.TrustedDomains = defaults.TrustedDomains
	}
	if pipeline == nil {
		pipeline = NopPipeline{}
	}

	return &Manager{
		cfg:      cfg,
		checker:  checker,
		pipeline: pipeline,
		logger:   logger,
		now:      time.Now,
		entries:  kv.New[string, entry](),
	}
}

// IsValid reports whether uri looks loadable. It never returns an error:
// network failures and timeouts count as invalid.
func (m *Manager) IsValid(ctx context.Context, uri string) bool {
	uri = strings.TrimSpace(uri)

	kind := Classify(uri, m.cfg.TrustedDomains)
	switch kind {
	case KindInvalid:
		return false
	case KindTrusted:
		return true
	}

	if e, ok := m.entries.Get(uri); ok && m.fresh(e) {
		m.hits.Add(1)
		return e.Valid
	}

	if kind == KindLocal {
		valid := ValidLocalURI(uri)
		m.remember(uri, valid)
		return valid
	}

	if ctx.Err() != nil {
		return false
	}

	// Concurrent callers for the same URI share one check. The check is
	// detached from the first caller's cancellation and bounded by
	// CheckTimeout alone; a caller that gives up just stops waiting.
	ch := m.group.DoChan(uri, func() (any, error) {
		if e, ok := m.entries.Get(uri); ok && m.fresh(e) {
			return e.Valid, nil
		}

		valid, cacheable := m.check(context.WithoutCancel(ctx), uri)
		if cacheable {
			m.remember(uri, valid)
		}
		return valid, nil
	})

	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

// FilterValid returns the valid URIs in their original order. Checks run
// concurrently.
func (m *Manager) FilterValid(ctx context.Context, uris []string) []string {
	if len(uris) == 0 {
		return []string{}
	}

	valid := iter.Map(uris, func(uri *string) bool {
		return m.IsValid(ctx, *uri)
	})

	out := make([]string, 0, len(uris))
	for i, ok := range valid {
		if ok {
			out = append(out, uris[i])
		}
	}
	return out
}

// Sources builds renderer descriptors without validating. Blank URIs are
// skipped.
func (m *Manager) Sources(uris []string) []Source {
	out := make([]Source, 0, len(uris))
	for _, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			continue
		}
		out = append(out, SourceFor(uri, m.cfg.TrustedDomains))
	}
	return out
}

// Preload validates uris and hands the valid ones to the pipeline. It
// returns how many sources loaded; on error that is the sources minus the
// failures the pipeline reported.
func (m *Manager) Preload(ctx context.Context, uris []string) (int, error) {
	valid := m.FilterValid(ctx, uris)
	if len(valid) == 0 {
		return 0, nil
	}

	sources := m.Sources(valid)
	if err := m.pipeline.Preload(ctx, sources); err != nil {
		failed := min(countErrors(err), len(sources))
		return len(sources) - failed, fmt.Errorf("preload %d of %d images failed: %w", failed, len(sources), err)
	}
	return len(sources), nil
}

// countErrors counts the errors joined into err.
func countErrors(err error) int {
	switch e := err.(type) {
	case nil:
		return 0
	case interface{ Unwrap() []error }:
		return len(e.Unwrap())
	case interface{ Errors() []error }:
		return len(e.Errors())
	default:
		return 1
	}
}

// ClearValidation forgets every cached validation result.
func (m *Manager) ClearValidation() {
	m.entries.Clear()
}

// ClearAll empties the pipeline's memory and disk caches and the validation
// cache. The validation cache is cleared even when the pipeline fails.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.ClearValidation()
	return errors.Join(
		m.pipeline.ClearMemoryCache(ctx),
		m.pipeline.ClearDiskCache(ctx),
	)
}

// SweepExpired removes expired validation entries and returns how many
// were removed.
func (m *Manager) SweepExpired() int {
	now := m.now()
	n := m.entries.DeleteFunc(func(_ string, e entry) bool {
		return now.Sub(e.CheckedAt) >= m.cfg.TTL
	})
	m.swept.Add(int64(n))
	return n
}

// Len returns the number of cached validation results.
func (m *Manager) Len() int {
	return m.entries.Len()
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Entries: m.entries.Len(),
		Hits:    m.hits.Load(),
		Checks:  m.checks.Load(),
		Swept:   m.swept.Load(),
	}
}

// check runs the network check with the configured timeout. cacheable is
// false when the caller's own context ended, since that says nothing about
// the image.
func (m *Manager) check(ctx context.Context, uri string) (valid, cacheable bool) {
	if m.checker == nil {
		return false, false
	}

	m.checks.Add(1)

	cctx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()

	err := m.checker.Check(cctx, uri)
	if err == nil {
		return true, true
	}

	if ctx.Err() != nil {
		return false, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Warn().Str("uri", uri).Dur("timeout", m.cfg.CheckTimeout).Msg("image check timed out")
	} else {
		m.logger.Debug().Err(err).Str("uri", uri).Msg("image check failed")
	}
	return false, true
}

func (m *Manager) fresh(e entry) bool {
	return m.now().Sub(e.CheckedAt) < m.cfg.TTL
}

// remember stores a result and sweeps expired entries once the soft
// capacity is exceeded.
func (m *Manager) remember(uri string, valid bool) {
	count := m.entries.SetAndCount(uri, entry{Valid: valid, CheckedAt: m.now()})
	if count > m.cfg.Capacity {
		if n := m.SweepExpired(); n > 0 {
			m.logger.Debug().Int("removed", n).Int("entries", count-n).Msg("swept expired image validations")
		}
	}
}
