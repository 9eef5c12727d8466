package lookup

import "iter"

// DefaultDomains is the domain restriction of filters that have none: the
// blank domain, which stands for "everywhere", included.
var DefaultDomains = map[string]bool{"": true}

// domainEntry is the value of a [DomainIndex] for a single domain: either a
// single included filter or a filter map with inclusions and exclusions.
type domainEntry struct {
	filters *OrderedMap[bool]
	id      ID
}

// all returns the filters of e with their inclusion flags.
func (e *domainEntry) all() (seq iter.Seq2[ID, bool]) {
	if e.filters != nil {
		return e.filters.All()
	}

	return func(yield func(ID, bool) bool) {
		yield(e.id, true)
	}
}

// DomainIndex maps domains to the filters restricted to them.  For every
// domain it keeps either a single included filter, which is by far the most
// common case, or a map from filters to inclusion flags once a second filter
// or an exclusion appears.
type DomainIndex struct {
	domains map[string]*domainEntry
}

// NewDomainIndex returns a new empty *DomainIndex.
func NewDomainIndex() (idx *DomainIndex) {
	return &DomainIndex{
		domains: map[string]*domainEntry{},
	}
}

// Add adds the filter with the given id to idx for each of the domains.  If
// domains is nil, [DefaultDomains] is used.  Exclusions of the blank domain
// are meaningless and are skipped.
func (idx *DomainIndex) Add(id ID, domains map[string]bool) {
	if domains == nil {
		domains = DefaultDomains
	}

	for domain, include := range domains {
		if !include && domain == "" {
			continue
		}

		e, ok := idx.domains[domain]
		switch {
		case !ok:
			e = &domainEntry{id: id}
			if !include {
				e.filters = NewOrderedMap[bool]()
				e.filters.Set(id, false)
			}

			idx.domains[domain] = e
		case e.filters == nil:
			if e.id != id {
				e.filters = NewOrderedMap[bool]()
				e.filters.Set(e.id, true)
				e.filters.Set(id, include)
			}
		default:
			e.filters.Set(id, include)
		}
	}
}

// Delete removes the filter with the given id from idx for each of the
// domains.  If domains is nil, [DefaultDomains] is used.  A filter map that is
// left with a single included filter is reduced back to that filter.
func (idx *DomainIndex) Delete(id ID, domains map[string]bool) {
	if domains == nil {
		domains = DefaultDomains
	}

	for domain := range domains {
		e, ok := idx.domains[domain]
		if !ok {
			continue
		}

		if e.filters == nil {
			if e.id == id {
				delete(idx.domains, domain)
			}

			continue
		}

		e.filters.Delete(id)
		switch e.filters.Len() {
		case 0:
			delete(idx.domains, domain)
		case 1:
			for last, include := range e.filters.All() {
				if include {
					idx.domains[domain] = &domainEntry{id: last}
				}
			}
		}
	}
}

// Lookup returns the filters for domain with their inclusion flags.  ok is
// false if there are none.
func (idx *DomainIndex) Lookup(domain string) (seq iter.Seq2[ID, bool], ok bool) {
	e, ok := idx.domains[domain]
	if !ok {
		return nil, false
	}

	return e.all(), true
}

// Bare returns the only filter of idx if idx contains just the blank domain
// with a single included filter.
func (idx *DomainIndex) Bare() (id ID, ok bool) {
	if len(idx.domains) != 1 {
		return 0, false
	}

	e, has := idx.domains[""]
	if !has || e.filters != nil {
		return 0, false
	}

	return e.id, true
}

// Len returns the number of domains in idx.
func (idx *DomainIndex) Len() (n int) {
	return len(idx.domains)
}

// KeywordEntry is the value of the domain-scoped index for a single keyword:
// either a single filter without domain restrictions or a [DomainIndex].  The
// zero value is empty.
type KeywordEntry struct {
	index *DomainIndex
	id    ID
	bare  bool
}

// BareEntry returns an entry with a single unrestricted filter.
func BareEntry(id ID) (e KeywordEntry) {
	return KeywordEntry{id: id, bare: true}
}

// IndexEntry returns an entry with a domain index.
func IndexEntry(idx *DomainIndex) (e KeywordEntry) {
	return KeywordEntry{index: idx}
}

// Bare returns the filter of a bare entry.
func (e KeywordEntry) Bare() (id ID, ok bool) {
	return e.id, e.bare
}

// Index returns the domain index of an index entry.
func (e KeywordEntry) Index() (idx *DomainIndex, ok bool) {
	return e.index, e.index != nil
}
