package imagecache

import "context"

// Priority hints how urgently the renderer should fetch an image.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// CachePolicy hints where the renderer should keep a fetched image.
type CachePolicy string

const (
	// CacheMemory keeps decoded bytes in memory. Used for local files that
	// are cheap to re-read but shown often.
	CacheMemory CachePolicy = "memory"
	// CacheImmutable stores on disk and never revalidates.
	CacheImmutable CachePolicy = "immutable"
	// CacheWeb stores on disk and follows HTTP caching headers.
	CacheWeb CachePolicy = "web"
)

// Source is a renderer-ready image descriptor.
type Source struct {
	URI      string      `json:"uri"`
	Priority Priority    `json:"priority"`
	Cache    CachePolicy `json:"cache"`
}

// Pipeline is the image loading and caching layer that renders images.
type Pipeline interface {
	Preload(ctx context.Context, sources []Source) error
	ClearMemoryCache(ctx context.Context) error
	ClearDiskCache(ctx context.Context) error
}

// NopPipeline accepts every call and does nothing.
type NopPipeline struct{}

func (NopPipeline) Preload(context.Context, []Source) error { return nil }
func (NopPipeline) ClearMemoryCache(context.Context) error  { return nil }
func (NopPipeline) ClearDiskCache(context.Context) error    { return nil }
