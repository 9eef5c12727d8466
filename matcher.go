package urlmatcher

import (
	"iter"
	"log/slog"

	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/internal/lookup"
	"github.com/AdguardTeam/urlmatcher/internal/pattern"
	"github.com/AdguardTeam/urlmatcher/rules"
)

// Config is the configuration structure for [Matcher] and [CombinedMatcher].
type Config struct {
	// Logger is used to log the maintenance of the indexes.  It must not be
	// nil.
	Logger *slog.Logger

	// Domains is used to tell third-party requests from first-party ones.  It
	// must not be nil.
	Domains *filterutil.Domains

	// CacheSize is the number of results [CombinedMatcher] caches.  If it's
	// zero, [DefaultCacheSize] is used.  It must not be negative.
	CacheSize int
}

// Matcher indexes filters of a single kind by keyword and finds the filters
// that match a request.  Location-only filters are kept apart from the rest:
// they are checked first and only the URL decides whether they match.  Other
// filters are indexed by keyword and then either by special type or by the
// domains they are restricted to.
//
// Matcher is not safe for concurrent use.
type Matcher struct {
	logger  *slog.Logger
	domains *filterutil.Domains

	// ids maps filters to their identifiers.
	ids map[Filter]lookup.ID

	// filters and keywords are indexed by the identifiers.  Free slots are
	// nil and their identifiers are kept in free.
	filters  []Filter
	keywords []string
	free     []lookup.ID

	// simple contains the location-only filters.
	simple lookup.SlotTable

	// complex contains the rest of the filters.
	complex lookup.SlotTable

	// byType contains the complex filters by each special type they apply
	// to.
	byType map[contenttype.Type]lookup.SlotTable

	// byDomain contains the complex filters by the domains they are
	// restricted to.
	byDomain map[string]lookup.KeywordEntry

	// compiled contains the compiled patterns of the location-only filters by
	// keyword.  A present nil value means that the patterns couldn't be
	// compiled.
	compiled map[string]*pattern.Compiled

	// keywordless is the compiled pattern of the generic complex filters
	// without a keyword.  It's only valid if keywordlessReady is true.
	keywordless      *pattern.Compiled
	keywordlessReady bool
}

// NewMatcher returns a new properly initialized *Matcher.  c must not be nil.
func NewMatcher(c *Config) (m *Matcher) {
	m = &Matcher{
		logger:  c.Logger,
		domains: c.Domains,
	}
	m.reset()

	return m
}

// reset makes m empty.
func (m *Matcher) reset() {
	m.ids = map[Filter]lookup.ID{}
	m.filters = nil
	m.keywords = nil
	m.free = nil
	m.simple = lookup.SlotTable{}
	m.complex = lookup.SlotTable{}
	m.byType = map[contenttype.Type]lookup.SlotTable{}
	m.byDomain = map[string]lookup.KeywordEntry{}
	m.compiled = map[string]*pattern.Compiled{}
	m.keywordless = nil
	m.keywordlessReady = false
}

// Clear removes all filters from m.
func (m *Matcher) Clear() {
	m.reset()
	m.logger.Debug("matcher cleared")
}

// Len returns the number of filters in m.
func (m *Matcher) Len() (n int) {
	return len(m.ids)
}

// Has returns true if f has been added to m.
func (m *Matcher) Has(f Filter) (ok bool) {
	_, ok = m.ids[f]

	return ok
}

// register assigns an identifier to f.
func (m *Matcher) register(f Filter, keyword string) (id lookup.ID) {
	if n := len(m.free); n > 0 {
		id = m.free[n-1]
		m.free = m.free[:n-1]
		m.filters[id] = f
		m.keywords[id] = keyword
	} else {
		id = lookup.ID(len(m.filters))
		m.filters = append(m.filters, f)
		m.keywords = append(m.keywords, keyword)
	}

	m.ids[f] = id

	return id
}

// unregister releases the identifier of f.
func (m *Matcher) unregister(f Filter, id lookup.ID) {
	delete(m.ids, f)
	m.filters[id] = nil
	m.keywords[id] = ""
	m.free = append(m.free, id)
}

// Add adds f to m.  Adding a filter that is already in m does nothing.
func (m *Matcher) Add(f Filter) {
	if m.Has(f) {
		return
	}

	keyword := m.FindKeyword(f)
	id := m.register(f, keyword)

	if f.IsLocationOnly() {
		m.simple.Add(keyword, id)
		delete(m.compiled, keyword)

		return
	}

	m.complex.Add(keyword, id)
	if keyword == "" {
		m.keywordlessReady = false
	}

	for t := range contenttype.Enumerate(f.ContentType(), contenttype.SpecialTypes) {
		tbl, ok := m.byType[t]
		if !ok {
			tbl = lookup.SlotTable{}
			m.byType[t] = tbl
		}

		tbl.Add(keyword, id)
	}

	m.addByDomain(id, keyword, f.Domains())
}

// addByDomain adds the filter with the given id to the domain index of
// keyword.
func (m *Matcher) addByDomain(id lookup.ID, keyword string, domains map[string]bool) {
	var idx *lookup.DomainIndex

	e, ok := m.byDomain[keyword]
	if !ok {
		if domains == nil {
			m.byDomain[keyword] = lookup.BareEntry(id)

			return
		}

		idx = lookup.NewDomainIndex()
		m.byDomain[keyword] = lookup.IndexEntry(idx)
	} else if bareID, isBare := e.Bare(); isBare {
		idx = lookup.NewDomainIndex()
		idx.Add(bareID, nil)
		m.byDomain[keyword] = lookup.IndexEntry(idx)
	} else {
		idx, _ = e.Index()
	}

	idx.Add(id, domains)
}

// Remove removes f from m.  Removing a filter that isn't in m does nothing.
func (m *Matcher) Remove(f Filter) {
	id, ok := m.ids[f]
	if !ok {
		return
	}

	keyword := m.keywords[id]
	defer m.unregister(f, id)

	if f.IsLocationOnly() {
		m.simple.Delete(keyword, id)
		delete(m.compiled, keyword)

		return
	}

	m.complex.Delete(keyword, id)
	if keyword == "" {
		m.keywordlessReady = false
	}

	for t := range contenttype.Enumerate(f.ContentType(), contenttype.SpecialTypes) {
		tbl := m.byType[t]
		tbl.Delete(keyword, id)
		if len(tbl) == 0 {
			delete(m.byType, t)
		}
	}

	m.removeByDomain(id, keyword, f.Domains())
}

// removeByDomain removes the filter with the given id from the domain index of
// keyword.
func (m *Matcher) removeByDomain(id lookup.ID, keyword string, domains map[string]bool) {
	e, ok := m.byDomain[keyword]
	if !ok {
		return
	}

	if bareID, isBare := e.Bare(); isBare {
		if bareID == id {
			delete(m.byDomain, keyword)
		}

		return
	}

	idx, _ := e.Index()
	idx.Delete(id, domains)
	if idx.Len() == 0 {
		delete(m.byDomain, keyword)
	} else if bareID, isBare := idx.Bare(); isBare {
		m.byDomain[keyword] = lookup.BareEntry(bareID)
	}
}

// Match returns the first filter in m that matches the request or nil if there
// is none.  If specificOnly is true, generic filters are ignored.
func (m *Matcher) Match(
	url string,
	typeMask contenttype.Type,
	docDomain string,
	sitekey string,
	specificOnly bool,
) (f Filter) {
	r := rules.NewRequest(url, docDomain, m.domains)

	return m.match(r, typeMask, sitekey, specificOnly)
}

// match returns the first filter in m that matches r.
func (m *Matcher) match(
	r *rules.Request,
	typeMask contenttype.Type,
	sitekey string,
	specificOnly bool,
) (f Filter) {
	for kw := range urlKeywords(r.LowerCaseURL()) {
		if isBadKeyword(kw) {
			continue
		}

		f = m.checkEntryMatch(kw, r, typeMask, sitekey, specificOnly, nil)
		if f != nil {
			return f
		}
	}

	return nil
}

// collector accumulates matching filters during a search.  A nil *collector
// means that the first matching filter is enough.
type collector struct {
	seen    map[Filter]struct{}
	filters []Filter
}

// newCollector returns a new empty *collector.
func newCollector() (c *collector) {
	return &collector{
		seen: map[Filter]struct{}{},
	}
}

// found records f and returns true if the search should stop there.  A filter
// restricted to several domains can be found more than once, so duplicates
// are skipped.
func (c *collector) found(f Filter) (stop bool) {
	if c == nil {
		return true
	}

	if _, ok := c.seen[f]; !ok {
		c.seen[f] = struct{}{}
		c.filters = append(c.filters, f)
	}

	return false
}

// checkEntryMatch checks the filters indexed by keyword against r.  It returns
// the first matching filter if col is nil.  Otherwise, it adds all matching
// filters to col and returns nil.
func (m *Matcher) checkEntryMatch(
	keyword string,
	r *rules.Request,
	typeMask contenttype.Type,
	sitekey string,
	specificOnly bool,
	col *collector,
) (f Filter) {
	if !specificOnly && typeMask&contenttype.ResourceTypes != 0 {
		f = m.matchSimple(keyword, r, col)
		if f != nil {
			return f
		}
	}

	if typeMask&contenttype.SpecialTypes != 0 && typeMask.IsSingle() {
		return m.matchByType(keyword, r, typeMask, sitekey, specificOnly, col)
	}

	return m.matchByDomain(keyword, r, typeMask, sitekey, specificOnly, col)
}

// matchSimple checks the location-only filters indexed by keyword.
func (m *Matcher) matchSimple(keyword string, r *rules.Request, col *collector) (f Filter) {
	s, ok := m.simple[keyword]
	if !ok {
		return nil
	}

	if s.Len() > 1 {
		c, computed := m.compiled[keyword]
		if !computed {
			c = m.compile(keyword, s.All())
			m.compiled[keyword] = c
		}

		if c != nil && !c.Test(r.URL, r.LowerCaseURL()) {
			return nil
		}
	}

	for id := range s.All() {
		f = m.filters[id]
		if f.MatchesLocation(r) && col.found(f) {
			return f
		}
	}

	return nil
}

// matchByType checks the filters indexed by keyword that apply to the single
// special type t.
func (m *Matcher) matchByType(
	keyword string,
	r *rules.Request,
	t contenttype.Type,
	sitekey string,
	specificOnly bool,
	col *collector,
) (f Filter) {
	s, ok := m.byType[t][keyword]
	if !ok {
		return nil
	}

	for id := range s.All() {
		f = m.filters[id]
		if (!specificOnly || !f.IsGeneric()) && f.Matches(r, t, sitekey) && col.found(f) {
			return f
		}
	}

	return nil
}

// matchByDomain checks the filters indexed by keyword against the domains of
// the document, from the most specific one to the blank domain.
func (m *Matcher) matchByDomain(
	keyword string,
	r *rules.Request,
	typeMask contenttype.Type,
	sitekey string,
	specificOnly bool,
	col *collector,
) (f Filter) {
	e, ok := m.byDomain[keyword]
	if !ok {
		return nil
	}

	if id, isBare := e.Bare(); isBare {
		f = m.filters[id]
		if (!specificOnly || !f.IsGeneric()) && f.Matches(r, typeMask, sitekey) && col.found(f) {
			return f
		}

		return nil
	}

	idx, _ := e.Index()
	if keyword == "" && !specificOnly {
		c := m.keywordlessCompiled(idx)
		if c != nil && !c.Test(r.URL, r.LowerCaseURL()) {
			// None of the generic filters match, so only the specific ones
			// are left.
			specificOnly = true
		}
	}

	var excluded map[lookup.ID]struct{}
	for domain := range filterutil.DomainSuffixes(r.DocumentHostname, !specificOnly) {
		filters, found := idx.Lookup(domain)
		if !found {
			continue
		}

		for id, include := range filters {
			if !include {
				if excluded == nil {
					excluded = map[lookup.ID]struct{}{}
				}

				excluded[id] = struct{}{}

				continue
			}

			if _, ok = excluded[id]; ok {
				continue
			}

			f = m.filters[id]
			if f.MatchesWithoutDomain(r, typeMask, sitekey) && col.found(f) {
				return f
			}
		}
	}

	return nil
}

// keywordlessCompiled returns the compiled pattern of the generic filters in
// idx, which must be the domain index of the empty keyword.
func (m *Matcher) keywordlessCompiled(idx *lookup.DomainIndex) (c *pattern.Compiled) {
	if m.keywordlessReady {
		return m.keywordless
	}

	m.keywordless = nil
	if filters, ok := idx.Lookup(""); ok {
		m.keywordless = m.compile("", func(yield func(lookup.ID) bool) {
			for id, include := range filters {
				if include && !yield(id) {
					return
				}
			}
		})
	}

	m.keywordlessReady = true

	return m.keywordless
}

// compile returns the combined pattern of the filters with the given ids or
// nil if there are too many of them or the combination doesn't compile.
func (m *Matcher) compile(keyword string, ids iter.Seq[lookup.ID]) (c *pattern.Compiled) {
	var srcs []pattern.Source
	for id := range ids {
		if len(srcs) == pattern.CompileMax {
			return nil
		}

		srcs = append(srcs, filterSource(m.filters[id]))
	}

	c = pattern.Compile(srcs)
	if c == nil && len(srcs) > 0 {
		m.logger.Debug("combined pattern not compiled", "keyword", keyword, "filters", len(srcs))
	}

	return c
}

// filterSource returns the regular expression source of f.
func filterSource(f Filter) (src pattern.Source) {
	re := f.RegexpSource()
	if re == "" {
		re = pattern.ToRegexp(f.Pattern())
	}

	return pattern.Source{
		Regexp:    re,
		MatchCase: f.MatchCase(),
	}
}
