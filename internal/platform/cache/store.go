package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is an immutable cached value and the time it was produced.
type Entry[V any] struct {
	Value    V
	CachedAt time.Time
}

// Age reports how old the entry is at now.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Store is a process-local map of snapshot entries. Entries are replaced whole,
// never mutated. When ttl > 0, Get treats entries older than ttl as absent.
// Delete bumps the key's generation; GetOrLoad only caches a load whose
// generation is still current when it finishes.
type Store[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]Entry[V]
	gens    map[K]uint64
	ttl     time.Duration
	now     func() time.Time
	flight  singleflight.Group
}

type Option[K comparable, V any] func(*Store[K, V])

// WithClock overrides the time source used for ages and expiry.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(s *Store[K, V]) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		entries: make(map[K]Entry[V]),
		gens:    make(map[K]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Peek returns the entry regardless of ttl so callers can apply their own age policy.
func (s *Store[K, V]) Peek(key K) (Entry[V], bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return e, ok
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	e, ok := s.Peek(key)
	if !ok {
		var zero V
		return zero, false
	}
	if s.ttl > 0 && e.Age(s.now()) >= s.ttl {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Set stores value as produced now.
func (s *Store[K, V]) Set(key K, value V) {
	s.Put(key, value, s.now())
}

// Put stores value as produced at cachedAt unless the current entry is newer.
// It reports whether the entry was written.
func (s *Store[K, V]) Put(key K, value V, cachedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[key]; ok && current.CachedAt.After(cachedAt) {
		return false
	}
	s.entries[key] = Entry[V]{Value: value, CachedAt: cachedAt}
	return true
}

func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	delete(s.entries, key)
	s.gens[key]++
	s.mu.Unlock()
}

func (s *Store[K, V]) generation(key K) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[key]
}

// setIfGeneration stores value only when no Delete happened since gen was read.
func (s *Store[K, V]) setIfGeneration(key K, value V, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gens[key] != gen {
		return false
	}
	s.entries[key] = Entry[V]{Value: value, CachedAt: s.now()}
	return true
}

func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrLoad returns the cached value or runs loader once per key across
// concurrent callers and caches its result. Callers arriving after a Delete
// start a new load instead of joining one that may have read old data.
func (s *Store[K, V]) GetOrLoad(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	if loader == nil {
		var zero V
		return zero, fmt.Errorf("loader is required")
	}
	if value, ok := s.Get(key); ok {
		return value, nil
	}

	gen := s.generation(key)
	out, err, _ := s.flight.Do(fmt.Sprintf("%v#%d", key, gen), func() (any, error) {
		if cached, ok := s.Get(key); ok {
			return cached, nil
		}
		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		s.setIfGeneration(key, loaded, gen)
		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}
