// Package ttl provides a single-snapshot cache that expires after a fixed
// time-to-live.
package ttl

import (
	"sync"
	"time"
)

// Value holds at most one snapshot of T. A snapshot is a hit only while it
// is present and younger than the TTL.
type Value[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	data     T
	present  bool
	cachedAt time.Time
}

// New returns an empty Value with the given TTL. A nil clock uses time.Now.
func New[T any](ttl time.Duration, clock func() time.Time) *Value[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Value[T]{ttl: ttl, now: clock}
}

// Get returns the snapshot and true on a hit.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.present || v.now().Sub(v.cachedAt) >= v.ttl {
		var zero T
		return zero, false
	}
	return v.data, true
}

// Set replaces the snapshot and restarts its TTL.
func (v *Value[T]) Set(data T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.data = data
	v.present = true
	v.cachedAt = v.now()
}

// Invalidate drops the snapshot immediately.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	v.data = zero
	v.present = false
	v.cachedAt = time.Time{}
}

// Age returns how long ago the snapshot was stored, or false when empty.
func (v *Value[T]) Age() (time.Duration, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.present {
		return 0, false
	}
	return v.now().Sub(v.cachedAt), true
}

// TTL returns the configured time-to-live.
func (v *Value[T]) TTL() time.Duration {
	return v.ttl
}
