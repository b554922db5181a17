// Package kv provides a generic thread-safe key-value store.
package kv

import "sync"

// Store is a thread-safe generic key-value store.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// New creates a new key-value store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// SetAndCount stores a value and returns the number of entries after the write.
// Callers use the count to decide whether an opportunistic sweep is due
// without taking the lock twice.
func (s *Store[K, V]) SetAndCount(key K, value V) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return len(s.data)
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// DeleteFunc removes every entry for which fn returns true and reports how
// many entries were removed. fn runs with the write lock held and must not
// call back into the store.
func (s *Store[K, V]) DeleteFunc(fn func(K, V) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, v := range s.data {
		if fn(k, v) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

// Clear removes all entries from the store.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[K]V)
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys in the store.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
