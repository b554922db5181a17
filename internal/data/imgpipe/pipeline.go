// Package imgpipe is the on-device image pipeline: it fetches images, keeps
// recent ones in memory and the rest compressed on disk.
package imgpipe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/colonyops/pantry/internal/core/imagecache"
)

// Options configures a Pipeline.
type Options struct {
	Dir           string
	MemoryEntries int
	Concurrency   int
	MaxBytes      int64
	UserAgent     string
	Client        *http.Client

	// OnError is called for every image that fails to load.
	OnError func(uri string, err error)
}

func (o *Options) defaults() {
	if o.MemoryEntries < 0 {
		o.MemoryEntries = 0
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 10 << 20
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
}

// Stats describes cache usage.
type Stats struct {
	MemoryEntries int   `json:"memory_entries"`
	DiskFiles     int   `json:"disk_files"`
	DiskBytes     int64 `json:"disk_bytes"`
	Fetched       int64 `json:"fetched"`
	Failed        int64 `json:"failed"`
}

// Pipeline implements imagecache.Pipeline.
type Pipeline struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
	mem    *memoryCache
	disk   *diskCache

	fetched atomic.Int64
	failed  atomic.Int64
}

var _ imagecache.Pipeline = (*Pipeline)(nil)

// New creates a pipeline caching to opts.Dir.
func New(opts Options, logger zerolog.Logger) (*Pipeline, error) {
	if opts.Dir == "" {
		return nil, errors.New("image cache dir is required")
	}
	opts.defaults()

	disk, err := newDiskCache(opts.Dir)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		opts:   opts,
		client: opts.Client,
		logger: logger,
		mem:    newMemoryCache(opts.MemoryEntries),
		disk:   disk,
	}, nil
}

// Preload fetches sources that are not cached yet. Failures are reported
// through OnError; the joined error is returned after all sources ran.
func (p *Pipeline) Preload(ctx context.Context, sources []imagecache.Source) error {
	if len(sources) == 0 {
		return nil
	}

	pl := pool.New().
		WithMaxGoroutines(p.opts.Concurrency).
		WithErrors().
		WithContext(ctx)

	for _, src := range sources {
		pl.Go(func(ctx context.Context) error {
			if p.cached(src) {
				return nil
			}
			if _, err := p.load(ctx, src); err != nil {
				return fmt.Errorf("preload %s: %w", src.URI, err)
			}
			return nil
		})
	}

	return pl.Wait()
}

// Load returns the image bytes from memory, disk or the network, in that
// order. Remote images are treated as CacheWeb sources.
func (p *Pipeline) Load(ctx context.Context, uri string) ([]byte, error) {
	return p.load(ctx, imagecache.Source{URI: uri, Priority: imagecache.PriorityNormal, Cache: imagecache.CacheWeb})
}

// ClearMemoryCache drops every in-memory image.
func (p *Pipeline) ClearMemoryCache(context.Context) error {
	p.mem.clear()
	return nil
}

// ClearDiskCache removes every cached image file.
func (p *Pipeline) ClearDiskCache(context.Context) error {
	n, err := p.disk.clear()
	p.logger.Debug().Int("removed", n).Str("dir", p.opts.Dir).Msg("cleared image disk cache")
	if err != nil {
		return fmt.Errorf("clear disk cache: %w", err)
	}
	return nil
}

// Stats reports cache usage.
func (p *Pipeline) Stats() Stats {
	files, size := p.disk.usage()
	return Stats{
		MemoryEntries: p.mem.len(),
		DiskFiles:     files,
		DiskBytes:     size,
		Fetched:       p.fetched.Load(),
		Failed:        p.failed.Load(),
	}
}

// Close releases the codec resources.
func (p *Pipeline) Close() error {
	p.disk.close()
	return nil
}

func (p *Pipeline) cached(src imagecache.Source) bool {
	if src.Cache == imagecache.CacheMemory {
		return p.mem.has(src.URI)
	}
	return p.mem.has(src.URI) || p.disk.has(src.URI)
}

func (p *Pipeline) load(ctx context.Context, src imagecache.Source) ([]byte, error) {
	if data, ok := p.mem.get(src.URI); ok {
		return data, nil
	}

	if src.Cache != imagecache.CacheMemory {
		data, ok, err := p.disk.get(src.URI)
		if err != nil {
			p.logger.Warn().Err(err).Str("uri", src.URI).Msg("dropping unreadable cached image")
		}
		if ok {
			p.keepInMemory(src, data)
			return data, nil
		}
	}

	data, err := p.fetch(ctx, src.URI)
	if err != nil {
		p.failed.Add(1)
		if p.opts.OnError != nil {
			p.opts.OnError(src.URI, err)
		}
		return nil, err
	}
	p.fetched.Add(1)

	if src.Cache != imagecache.CacheMemory {
		if err := p.disk.put(src.URI, data); err != nil {
			p.logger.Warn().Err(err).Str("uri", src.URI).Msg("failed to cache image on disk")
		}
	}
	p.keepInMemory(src, data)
	return data, nil
}

func (p *Pipeline) keepInMemory(src imagecache.Source, data []byte) {
	if src.Cache == imagecache.CacheMemory || src.Priority == imagecache.PriorityHigh {
		p.mem.put(src.URI, data)
	}
}
