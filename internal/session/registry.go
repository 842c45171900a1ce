package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type registryEntry[T any] struct {
	item    T
	touched time.Time
}

// Registry maps generated IDs to live items such as runners or agent
// environments. Thread-safe for concurrent access.
type Registry[T any] struct {
	mu    sync.RWMutex
	items map[string]*registryEntry[T]
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]*registryEntry[T]),
		now:   time.Now,
	}
}

// Add stores an item under a new random ID and returns the ID.
func (r *Registry[T]) Add(item T) string {
	id := uuid.NewString()
	r.Put(id, item)
	return id
}

// Put stores an item under a caller-chosen ID, replacing any previous one.
func (r *Registry[T]) Put(id string, item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = &registryEntry[T]{item: item, touched: r.now()}
}

// Get returns an item and marks it as recently used.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	e.touched = r.now()
	return e.item, true
}

// Remove deletes an item and returns it.
func (r *Registry[T]) Remove(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(r.items, id)
	return e.item, true
}

// Len returns the number of items.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// IDs returns all IDs, sorted.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep removes and returns items not used within maxIdle.
func (r *Registry[T]) Sweep(maxIdle time.Duration) map[string]T {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	expired := make(map[string]T)
	for id, e := range r.items {
		if e.touched.Before(cutoff) {
			expired[id] = e.item
			delete(r.items, id)
		}
	}
	return expired
}
