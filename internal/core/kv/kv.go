// Package kv defines the byte-oriented key-value medium recipes are stored
// in, and the single-key Document view the repository works through.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetItem when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// Medium is the durable key-value store. Values are opaque bytes.
// Any call may fail; implementations return errors rather than panicking.
type Medium interface {
	// GetItem returns the stored value or an error wrapping ErrNotFound.
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
	// RemoveItem deletes the key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// Lister is implemented by media that can enumerate their keys.
type Lister interface {
	ListKeys(ctx context.Context) ([]string, error)
}
