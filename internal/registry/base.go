package registry

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// BaseRegistry provides common functionality for simple key-value registries
type BaseRegistry[K cmp.Ordered, V any] struct {
	data map[K]V
	mu   sync.RWMutex
}

// NewBaseRegistry creates a new base registry
func NewBaseRegistry[K cmp.Ordered, V any]() *BaseRegistry[K, V] {
	return &BaseRegistry[K, V]{
		data: make(map[K]V),
	}
}

// Add adds or replaces an item
func (r *BaseRegistry[K, V]) Add(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
}

// AddIfAbsent stores value unless key is present; it returns the stored value
// and whether it was added.
func (r *BaseRegistry[K, V]) AddIfAbsent(key K, value V) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.data[key]; exists {
		return existing, false
	}
	r.data[key] = value
	return value, true
}

// Get retrieves an item from the registry
func (r *BaseRegistry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, exists := r.data[key]
	return value, exists
}

// Count returns the number of items
func (r *BaseRegistry[K, V]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Keys returns all keys in sorted order
func (r *BaseRegistry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.data))
}

// Clear removes all items
func (r *BaseRegistry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[K]V)
}
