// Package snapshot keeps the last applied response of every console view
// in memory. Each fetch is stamped with a sequence number when it is
// issued; a response lands only if no later fetch for the same view has
// already landed.
package snapshot

import (
	"sync"
	"time"
)

// Observer receives snapshot events. *observability.Metrics satisfies it.
type Observer interface {
	IncrStaleDiscarded(view string)
	IncrSnapshotHit(view string)
	IncrSnapshotMiss(view string)
}

type entry[T any] struct {
	issued    uint64
	applied   uint64
	value     T
	has       bool
	expiresAt time.Time
}

// Store is a thread-safe per-view snapshot store with TTL.
type Store[T any] struct {
	mu       sync.Mutex
	items    map[string]*entry[T]
	ttl      time.Duration
	observer Observer
	stop     chan struct{}
	once     sync.Once
}

// New creates a store whose snapshots expire after ttl. observer may be nil.
func New[T any](ttl time.Duration, observer Observer) *Store[T] {
	s := &Store[T]{
		items:    make(map[string]*entry[T]),
		ttl:      ttl,
		observer: observer,
		stop:     make(chan struct{}),
	}
	// Background cleanup goroutine
	go s.cleanup()
	return s
}

// Begin stamps a new fetch for view and returns its sequence number.
func (s *Store[T]) Begin(view string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(view)
	e.issued++
	return e.issued
}

// Apply stores value if seq is newer than the last applied fetch for view.
// It reports whether the value was applied; a false return means the
// response was stale and has been discarded.
func (s *Store[T]) Apply(view string, seq uint64, value T) bool {
	s.mu.Lock()
	e := s.entry(view)
	if seq <= e.applied {
		s.mu.Unlock()
		if s.observer != nil {
			s.observer.IncrStaleDiscarded(view)
		}
		return false
	}
	e.applied = seq
	e.value = value
	e.has = true
	e.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return true
}

// Get returns the current snapshot of view. Returns false if none is stored
// or it has expired.
func (s *Store[T]) Get(view string) (T, bool) {
	s.mu.Lock()
	e, ok := s.items[view]
	hit := ok && e.has && time.Now().Before(e.expiresAt)
	var value T
	if hit {
		value = e.value
	}
	s.mu.Unlock()

	if s.observer != nil {
		if hit {
			s.observer.IncrSnapshotHit(view)
		} else {
			s.observer.IncrSnapshotMiss(view)
		}
	}
	return value, hit
}

// Invalidate drops the stored value of view. Sequence numbers are kept so
// fetches already in flight still order correctly.
func (s *Store[T]) Invalidate(view string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[view]; ok {
		var zero T
		e.value = zero
		e.has = false
	}
}

// Reset drops every stored value, e.g. when the session ends.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	for _, e := range s.items {
		e.value = zero
		e.has = false
	}
}

// Close stops the cleanup goroutine.
func (s *Store[T]) Close() {
	s.once.Do(func() { close(s.stop) })
}

// entry must be called with mu held.
func (s *Store[T]) entry(view string) *entry[T] {
	e, ok := s.items[view]
	if !ok {
		e = &entry[T]{}
		s.items[view] = e
	}
	return e
}

// cleanup periodically drops expired values.
func (s *Store[T]) cleanup() {
	interval := s.ttl
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			var zero T
			for _, e := range s.items {
				if e.has && now.After(e.expiresAt) {
					e.value = zero
					e.has = false
				}
			}
			s.mu.Unlock()
		}
	}
}
