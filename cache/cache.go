// Package cache contains a bounded key-value cache that drops all of its
// entries once it overflows.
package cache

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrInvalidCapacity is returned by [New] when the capacity is not
	// positive.
	ErrInvalidCapacity errors.Error = "invalid capacity"

	// ErrInvalidEntry is returned by [Cache.Set] when either the key or the
	// value is a nil interface value.
	ErrInvalidEntry errors.Error = "invalid cache entry"
)

// Cache is a fixed-capacity map.  When it is full and a new key is inserted,
// all previous entries are dropped.  Cached results of a matcher depend on
// the whole rule set, so there is no entry worth keeping over another one.
//
// Cache is not safe for concurrent use.
type Cache[K comparable, V any] struct {
	data     map[K]V
	capacity int
}

// New returns a new cache that holds at most capacity entries.  capacity must
// be positive.
func New[K comparable, V any](capacity int) (c *Cache[K, V], err error) {
	if capacity < 1 {
		return nil, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidCapacity)
	}

	return &Cache[K, V]{
		data:     make(map[K]V),
		capacity: capacity,
	}, nil
}

// Get returns the value stored for key.  ok is false if there is none.
func (c *Cache[K, V]) Get(key K) (val V, ok bool) {
	val, ok = c.data[key]

	return val, ok
}

// Set stores val for key.  If the cache is full and key is not in it yet, the
// cache is cleared first.
func (c *Cache[K, V]) Set(key K, val V) (err error) {
	if any(key) == nil {
		return fmt.Errorf("key: %w", ErrInvalidEntry)
	} else if any(val) == nil {
		return fmt.Errorf("value: %w", ErrInvalidEntry)
	}

	if len(c.data) >= c.capacity {
		if _, ok := c.data[key]; !ok {
			c.Clear()
		}
	}

	c.data[key] = val

	return nil
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	clear(c.data)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() (n int) {
	return len(c.data)
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() (n int) {
	return c.capacity
}
