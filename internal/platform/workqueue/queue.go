// Package workqueue provides a FIFO of distinct keys where a key stays a member
// from the moment it is added until the consumer marks it done.
package workqueue

import (
	"context"
	"sync"
)

type membership uint8

const (
	queued membership = iota + 1
	inFlight
)

// Queue is safe for concurrent producers and a single consumer.
type Queue[K comparable] struct {
	mu       sync.Mutex
	items    []K
	members  map[K]membership
	capacity int
	signal   chan struct{}
}

// New returns a queue. capacity <= 0 means unbounded.
func New[K comparable](capacity int) *Queue[K] {
	return &Queue[K]{
		members:  make(map[K]membership),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Add enqueues key unless it is already queued or in flight, or the queue is full.
func (q *Queue[K]) Add(key K) bool {
	q.mu.Lock()
	if _, ok := q.members[key]; ok {
		q.mu.Unlock()
		return false
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, key)
	q.members[key] = queued
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Next blocks until a key is available or ctx is done. The returned key is
// marked in flight and must be released with Done.
func (q *Queue[K]) Next(ctx context.Context) (K, bool) {
	for {
		if key, ok := q.pop(); ok {
			return key, true
		}
		select {
		case <-ctx.Done():
			var zero K
			return zero, false
		case <-q.signal:
		}
	}
}

func (q *Queue[K]) pop() (K, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero K
	if len(q.items) == 0 {
		return zero, false
	}
	key := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.members[key] = inFlight
	return key, true
}

// Done releases a key returned by Next.
func (q *Queue[K]) Done(key K) {
	q.mu.Lock()
	if q.members[key] == inFlight {
		delete(q.members, key)
	}
	q.mu.Unlock()
}

// Contains reports whether key is queued or in flight.
func (q *Queue[K]) Contains(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.members[key]
	return ok
}

// Len is the number of keys waiting, excluding in-flight ones.
func (q *Queue[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[K]) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.members) - len(q.items)
}
