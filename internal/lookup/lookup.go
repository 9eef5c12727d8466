// Package lookup implements index structures that we use to improve matching
// speed in the matchers.  All structures refer to filters by their [ID]s and
// keep insertion order, so that matching results are deterministic.
package lookup

import "iter"

// ID is the identifier a matcher assigns to a filter when it's added.
type ID uint32

// orderedKey is an element of [OrderedMap.order].  It is stale if the map no
// longer contains id or contains it with another seq.
type orderedKey struct {
	id  ID
	seq uint64
}

// orderedValue is a value of [OrderedMap.items].
type orderedValue[V any] struct {
	val V
	seq uint64
}

// OrderedMap is a map from IDs to values that iterates in insertion order.
// Deletion is O(1), stale order entries are compacted lazily.
type OrderedMap[V any] struct {
	items map[ID]orderedValue[V]
	order []orderedKey
	seq   uint64
}

// NewOrderedMap returns a new empty *OrderedMap.
func NewOrderedMap[V any]() (m *OrderedMap[V]) {
	return &OrderedMap[V]{
		items: map[ID]orderedValue[V]{},
	}
}

// Set sets the value for id.  An existing id keeps its position.
func (m *OrderedMap[V]) Set(id ID, val V) {
	if v, ok := m.items[id]; ok {
		v.val = val
		m.items[id] = v

		return
	}

	m.seq++
	m.items[id] = orderedValue[V]{val: val, seq: m.seq}
	m.order = append(m.order, orderedKey{id: id, seq: m.seq})
}

// Get returns the value for id.
func (m *OrderedMap[V]) Get(id ID) (val V, ok bool) {
	v, ok := m.items[id]

	return v.val, ok
}

// Delete removes id from m.  ok is false if there was no such id.
func (m *OrderedMap[V]) Delete(id ID) (ok bool) {
	if _, ok = m.items[id]; !ok {
		return false
	}

	delete(m.items, id)
	if len(m.order) > 2*len(m.items)+8 {
		m.compact()
	}

	return true
}

// compact removes stale entries from m.order.
func (m *OrderedMap[V]) compact() {
	live := m.order[:0]
	for _, k := range m.order {
		if v, ok := m.items[k.id]; ok && v.seq == k.seq {
			live = append(live, k)
		}
	}

	clear(m.order[len(live):])
	m.order = live
}

// Len returns the number of elements in m.
func (m *OrderedMap[V]) Len() (n int) {
	return len(m.items)
}

// All returns the sequence of the elements of m in insertion order.  m must
// not be modified during the iteration.
func (m *OrderedMap[V]) All() (seq iter.Seq2[ID, V]) {
	return func(yield func(ID, V) bool) {
		for _, k := range m.order {
			v, ok := m.items[k.id]
			if ok && v.seq == k.seq && !yield(k.id, v.val) {
				return
			}
		}
	}
}
