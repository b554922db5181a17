package kv

import (
	"context"
	"errors"
	"fmt"
)

// Document scopes a Medium to one fixed key. It never swallows medium
// errors; callers decide whether to degrade.
type Document struct {
	medium Medium
	key    string
}

// NewDocument returns a Document stored under key.
func NewDocument(medium Medium, key string) *Document {
	return &Document{medium: medium, key: key}
}

// Key returns the storage key.
func (d *Document) Key() string {
	return d.key
}

// Medium returns the underlying medium.
func (d *Document) Medium() Medium {
	return d.medium
}

// Read returns the stored bytes, or nil with no error when the key is absent.
func (d *Document) Read(ctx context.Context) ([]byte, error) {
	data, err := d.medium.GetItem(ctx, d.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", d.key, err)
	}
	return data, nil
}

// Write replaces the stored bytes.
func (d *Document) Write(ctx context.Context, data []byte) error {
	if err := d.medium.SetItem(ctx, d.key, data); err != nil {
		return fmt.Errorf("write %q: %w", d.key, err)
	}
	return nil
}

// Clear removes the key entirely.
func (d *Document) Clear(ctx context.Context) error {
	if err := d.medium.RemoveItem(ctx, d.key); err != nil {
		return fmt.Errorf("clear %q: %w", d.key, err)
	}
	return nil
}
