package lookup

import "iter"

// Slot is a set of IDs optimized for the common case of a single element.
// The zero value is an empty slot.  It has three states:
//
//   - empty: single is false and many is nil;
//   - single: single is true and id is the only element;
//   - many: many is not nil and contains at least two elements.
type Slot struct {
	many   *OrderedMap[struct{}]
	id     ID
	single bool
}

// Add adds id to s, promoting a single-element slot to a set if id is new.
// ok is false if s already contained id.
func (s *Slot) Add(id ID) (ok bool) {
	switch {
	case s.many != nil:
		if _, has := s.many.Get(id); has {
			return false
		}

		s.many.Set(id, struct{}{})
	case s.single:
		if s.id == id {
			return false
		}

		s.many = NewOrderedMap[struct{}]()
		s.many.Set(s.id, struct{}{})
		s.many.Set(id, struct{}{})
		s.id, s.single = 0, false
	default:
		s.id, s.single = id, true
	}

	return true
}

// Delete removes id from s, demoting a set to a single element when only one
// is left.  ok is false if s didn't contain id.
func (s *Slot) Delete(id ID) (ok bool) {
	switch {
	case s.many != nil:
		if !s.many.Delete(id) {
			return false
		}

		if s.many.Len() == 1 {
			for last := range s.many.All() {
				s.id, s.single = last, true
			}

			s.many = nil
		}

		return true
	case s.single && s.id == id:
		s.id, s.single = 0, false

		return true
	default:
		return false
	}
}

// Has returns true if s contains id.
func (s *Slot) Has(id ID) (ok bool) {
	if s.many != nil {
		_, ok = s.many.Get(id)

		return ok
	}

	return s.single && s.id == id
}

// Len returns the number of elements in s.
func (s *Slot) Len() (n int) {
	switch {
	case s.many != nil:
		return s.many.Len()
	case s.single:
		return 1
	default:
		return 0
	}
}

// All returns the sequence of the elements of s in insertion order.
func (s *Slot) All() (seq iter.Seq[ID]) {
	return func(yield func(ID) bool) {
		if s.many == nil {
			if s.single {
				yield(s.id)
			}

			return
		}

		for id := range s.many.All() {
			if !yield(id) {
				return
			}
		}
	}
}

// SlotTable is a map from keywords to slots.  Empty slots are removed.
type SlotTable map[string]*Slot

// Add adds id to the slot for key.  ok is false if it was already there.
func (t SlotTable) Add(key string, id ID) (ok bool) {
	s, has := t[key]
	if !has {
		s = &Slot{}
		t[key] = s
	}

	return s.Add(id)
}

// Delete removes id from the slot for key and removes the slot once it's
// empty.  ok is false if id wasn't there.
func (t SlotTable) Delete(key string, id ID) (ok bool) {
	s, has := t[key]
	if !has {
		return false
	}

	ok = s.Delete(id)
	if s.Len() == 0 {
		delete(t, key)
	}

	return ok
}

// Count returns the number of elements in the slot for key.
func (t SlotTable) Count(key string) (n int) {
	if s, ok := t[key]; ok {
		return s.Len()
	}

	return 0
}
