package urlmatcher

import (
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/urlmatcher/cache"
	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/rules"
)

// DefaultCacheSize is the default number of results a [CombinedMatcher]
// caches.
const DefaultCacheSize = 10_000

// SearchType selects the kinds of filters [CombinedMatcher.Search] looks for.
type SearchType uint8

// SearchType values.
const (
	SearchAll SearchType = iota
	SearchBlocking
	SearchWhitelist
)

// String implements the [fmt.Stringer] interface for SearchType.
func (t SearchType) String() (s string) {
	switch t {
	case SearchAll:
		return "all"
	case SearchBlocking:
		return "blocking"
	case SearchWhitelist:
		return "whitelist"
	default:
		return fmt.Sprintf("!bad_search_type_%d", t)
	}
}

// SearchResult contains the filters found by [CombinedMatcher.Search].  The
// slices are nil if the corresponding kind wasn't searched for or nothing was
// found.
type SearchResult struct {
	Blocking  []Filter
	Whitelist []Filter
}

// cacheKey is the key of the result cache.  Match and search results share the
// cache and are told apart by search.
type cacheKey struct {
	url          string
	docDomain    string
	sitekey      string
	typeMask     contenttype.Type
	specificOnly bool
	search       bool
	searchType   SearchType
}

// cacheValue is either a match result, possibly nil, or a search result.
type cacheValue struct {
	filter Filter
	result *SearchResult
}

// CombinedMatcher pairs a blocking and an exception [Matcher] and caches the
// results.  Exception filters take precedence over blocking ones.
//
// CombinedMatcher is not safe for concurrent use.
type CombinedMatcher struct {
	logger    *slog.Logger
	blocking  *Matcher
	whitelist *Matcher
	cache     *cache.Cache[cacheKey, cacheValue]
}

// NewCombinedMatcher returns a new properly initialized *CombinedMatcher.  c
// must not be nil.
func NewCombinedMatcher(c *Config) (m *CombinedMatcher, err error) {
	size := c.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}

	results, err := cache.New[cacheKey, cacheValue](size)
	if err != nil {
		return nil, fmt.Errorf("creating result cache: %w", err)
	}

	return &CombinedMatcher{
		logger:    c.Logger,
		blocking:  NewMatcher(c),
		whitelist: NewMatcher(c),
		cache:     results,
	}, nil
}

// matcherFor returns the matcher for the kind of f.
func (m *CombinedMatcher) matcherFor(f Filter) (sub *Matcher) {
	if f.Kind() == rules.KindWhitelist {
		return m.whitelist
	}

	return m.blocking
}

// Add adds f to the matcher of its kind.
func (m *CombinedMatcher) Add(f Filter) {
	m.matcherFor(f).Add(f)
	m.cache.Clear()
}

// Remove removes f from the matcher of its kind.
func (m *CombinedMatcher) Remove(f Filter) {
	m.matcherFor(f).Remove(f)
	m.cache.Clear()
}

// Clear removes all filters.
func (m *CombinedMatcher) Clear() {
	m.blocking.Clear()
	m.whitelist.Clear()
	m.cache.Clear()
}

// Has returns true if f has been added.
func (m *CombinedMatcher) Has(f Filter) (ok bool) {
	return m.matcherFor(f).Has(f)
}

// FindKeyword returns the keyword f would be indexed by if it were added now.
func (m *CombinedMatcher) FindKeyword(f Filter) (kw string) {
	return m.matcherFor(f).FindKeyword(f)
}

// Len returns the number of blocking and exception filters.
func (m *CombinedMatcher) Len() (blocking, whitelist int) {
	return m.blocking.Len(), m.whitelist.Len()
}

// Match returns the filter that decides the request: an exception filter if
// one matches, otherwise a blocking filter if one matches, otherwise nil.  If
// specificOnly is true, generic blocking filters are ignored.
func (m *CombinedMatcher) Match(
	url string,
	typeMask contenttype.Type,
	docDomain string,
	sitekey string,
	specificOnly bool,
) (f Filter) {
	key := cacheKey{
		url:          url,
		docDomain:    docDomain,
		sitekey:      sitekey,
		typeMask:     typeMask,
		specificOnly: specificOnly,
	}

	if v, ok := m.cache.Get(key); ok {
		return v.filter
	}

	f = m.match(url, typeMask, docDomain, sitekey, specificOnly)
	m.store(key, cacheValue{filter: f})

	return f
}

// match returns the deciding filter without using the cache.
func (m *CombinedMatcher) match(
	url string,
	typeMask contenttype.Type,
	docDomain string,
	sitekey string,
	specificOnly bool,
) (f Filter) {
	r := rules.NewRequest(url, docDomain, m.blocking.domains)

	var blocking Filter
	if typeMask&^contenttype.WhitelistingTypes != 0 {
		blocking = m.blocking.match(r, typeMask, sitekey, specificOnly)
	}

	if blocking == nil && typeMask&contenttype.WhitelistingTypes == 0 {
		return nil
	}

	if exception := m.whitelist.match(r, typeMask, sitekey, false); exception != nil {
		return exception
	}

	return blocking
}

// Search returns all filters of the kinds selected by searchType that match
// the request.  Generic exception filters are always considered, even if
// specificOnly is true.  The result must not be modified.
func (m *CombinedMatcher) Search(
	url string,
	typeMask contenttype.Type,
	docDomain string,
	sitekey string,
	specificOnly bool,
	searchType SearchType,
) (res *SearchResult) {
	key := cacheKey{
		url:          url,
		docDomain:    docDomain,
		sitekey:      sitekey,
		typeMask:     typeMask,
		specificOnly: specificOnly,
		search:       true,
		searchType:   searchType,
	}

	if v, ok := m.cache.Get(key); ok {
		return v.result
	}

	res = m.search(url, typeMask, docDomain, sitekey, specificOnly, searchType)
	m.store(key, cacheValue{result: res})

	return res
}

// search collects the matching filters without using the cache.
func (m *CombinedMatcher) search(
	url string,
	typeMask contenttype.Type,
	docDomain string,
	sitekey string,
	specificOnly bool,
	searchType SearchType,
) (res *SearchResult) {
	r := rules.NewRequest(url, docDomain, m.blocking.domains)

	var blocking, whitelist *collector
	if searchType != SearchWhitelist && typeMask&^contenttype.WhitelistingTypes != 0 {
		blocking = newCollector()
	}

	if searchType != SearchBlocking {
		whitelist = newCollector()
	}

	for kw := range urlKeywords(r.LowerCaseURL()) {
		if isBadKeyword(kw) {
			continue
		}

		if blocking != nil {
			m.blocking.checkEntryMatch(kw, r, typeMask, sitekey, specificOnly, blocking)
		}

		if whitelist != nil {
			m.whitelist.checkEntryMatch(kw, r, typeMask, sitekey, false, whitelist)
		}
	}

	res = &SearchResult{}
	if blocking != nil {
		res.Blocking = blocking.filters
	}

	if whitelist != nil {
		res.Whitelist = whitelist.filters
	}

	return res
}

// IsWhitelisted returns true if an exception filter matches the request.
func (m *CombinedMatcher) IsWhitelisted(
	url string,
	typeMask contenttype.Type,
	docDomain string,
	sitekey string,
) (ok bool) {
	return m.whitelist.Match(url, typeMask, docDomain, sitekey, false) != nil
}

// store puts v into the result cache.
func (m *CombinedMatcher) store(key cacheKey, v cacheValue) {
	err := m.cache.Set(key, v)
	if err != nil {
		m.logger.Error("caching result", "url", key.url, slogutil.KeyError, err)
	}
}
