package urlmatcher_test

import (
	"fmt"
	"runtime/debug"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCombined returns a combined matcher with the filters parsed from
// texts.
func newTestCombined(tb testing.TB, cacheSize int, texts ...string) (m *urlmatcher.CombinedMatcher) {
	tb.Helper()

	c := newTestConfig()
	c.CacheSize = cacheSize

	m, err := urlmatcher.NewCombinedMatcher(c)
	require.NoError(tb, err)

	for _, text := range texts {
		m.Add(newTestFilter(tb, text))
	}

	return m
}

func TestNewCombinedMatcher(t *testing.T) {
	t.Parallel()

	c := newTestConfig()
	c.CacheSize = -1

	m, err := urlmatcher.NewCombinedMatcher(c)
	assert.Nil(t, m)
	testutil.AssertErrorMsg(t, "creating result cache: capacity -1: invalid capacity", err)
}

func TestCombinedMatcher_Match(t *testing.T) {
	t.Parallel()

	m := newTestCombined(
		t,
		0,
		"||example.com^",
		"@@||example.com/allowed^",
		"||ads.org^",
		"@@||ads.org^$image,domain=good.com",
		"@@||foo.com^$document",
		"@@||bar.com^$genericblock",
	)

	testCases := []struct {
		name         string
		url          string
		docDomain    string
		want         string
		typeMask     contenttype.Type
		specificOnly bool
	}{{
		name:     "blocked",
		url:      "http://example.com/other",
		want:     "||example.com^",
		typeMask: contenttype.Script,
	}, {
		name:     "exception",
		url:      "http://example.com/allowed/x.js",
		want:     "@@||example.com/allowed^",
		typeMask: contenttype.Script,
	}, {
		name:         "specific_only_no_blocking",
		url:          "http://example.com/allowed/x.js",
		want:         "",
		typeMask:     contenttype.Script,
		specificOnly: true,
	}, {
		name:         "generic_specific_only",
		url:          "http://example.com/other",
		want:         "",
		typeMask:     contenttype.Script,
		specificOnly: true,
	}, {
		name:      "exception_domain",
		url:       "http://ads.org/pic.png",
		docDomain: "www.good.com",
		want:      "@@||ads.org^$image,domain=good.com",
		typeMask:  contenttype.Image,
	}, {
		name:      "exception_other_domain",
		url:       "http://ads.org/pic.png",
		docDomain: "bad.com",
		want:      "||ads.org^",
		typeMask:  contenttype.Image,
	}, {
		name:      "exception_other_type",
		url:       "http://ads.org/x.js",
		docDomain: "good.com",
		want:      "||ads.org^",
		typeMask:  contenttype.Script,
	}, {
		name:     "document",
		url:      "http://foo.com/page",
		want:     "@@||foo.com^$document",
		typeMask: contenttype.Document,
	}, {
		name:     "document_other",
		url:      "http://baz.com/page",
		want:     "",
		typeMask: contenttype.Document,
	}, {
		name:     "document_blocking_ignored",
		url:      "http://example.com/other",
		want:     "",
		typeMask: contenttype.Document,
	}, {
		name:     "genericblock",
		url:      "http://bar.com/",
		want:     "@@||bar.com^$genericblock",
		typeMask: contenttype.GenericBlock,
	}, {
		name:     "nothing",
		url:      "http://nothing.net/",
		want:     "",
		typeMask: contenttype.Other,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Not parallel, the matcher isn't safe for concurrent use.
			got := m.Match(tc.url, tc.typeMask, tc.docDomain, "", tc.specificOnly)
			assert.Equal(t, tc.want, filterText(got))

			// Again, from the cache.
			got = m.Match(tc.url, tc.typeMask, tc.docDomain, "", tc.specificOnly)
			assert.Equal(t, tc.want, filterText(got))
		})
	}
}

func TestCombinedMatcher_cache(t *testing.T) {
	t.Parallel()

	const (
		url1 = "http://example.com/ad.js"
		url2 = "http://example.org/ad.js"
	)

	// The cache holds one result at a time.
	m := newTestCombined(t, 1)
	blocking := newTestFilter(t, "||example.com^")
	exception := newTestFilter(t, "@@||example.com/ad.js")

	assert.Nil(t, m.Match(url1, contenttype.Script, "", "", false))

	m.Add(blocking)
	assert.True(t, m.Has(blocking))
	assert.Same(t, blocking, m.Match(url1, contenttype.Script, "", "", false))
	assert.Nil(t, m.Match(url2, contenttype.Script, "", "", false))
	assert.Same(t, blocking, m.Match(url1, contenttype.Script, "", "", false))

	m.Add(exception)
	assert.Same(t, exception, m.Match(url1, contenttype.Script, "", "", false))
	assert.True(t, m.IsWhitelisted(url1, contenttype.Script, "", ""))

	blockingNum, exceptionNum := m.Len()
	assert.Equal(t, 1, blockingNum)
	assert.Equal(t, 1, exceptionNum)

	m.Remove(exception)
	assert.Same(t, blocking, m.Match(url1, contenttype.Script, "", "", false))
	assert.False(t, m.IsWhitelisted(url1, contenttype.Script, "", ""))

	m.Clear()
	assert.Nil(t, m.Match(url1, contenttype.Script, "", "", false))
	assert.False(t, m.Has(blocking))
}

func TestCombinedMatcher_IsWhitelisted(t *testing.T) {
	t.Parallel()

	m := newTestCombined(t, 0, "@@||foo.com^$document", "@@||example.org^$elemhide,domain=site.com")

	assert.True(t, m.IsWhitelisted("http://foo.com/", contenttype.Document, "", ""))
	assert.True(t, m.IsWhitelisted("https://www.foo.com/index.html", contenttype.Document, "", ""))
	assert.False(t, m.IsWhitelisted("http://bar.com/", contenttype.Document, "", ""))
	assert.False(t, m.IsWhitelisted("http://foo.com/", contenttype.Script, "", ""))

	assert.True(t, m.IsWhitelisted("http://example.org/", contenttype.ElemHide, "site.com", ""))
	assert.False(t, m.IsWhitelisted("http://example.org/", contenttype.ElemHide, "other.com", ""))
}

func TestCombinedMatcher_Search(t *testing.T) {
	t.Parallel()

	const url = "http://ads.org/banner/1.png"

	adsFilter := newTestFilter(t, "||ads.org^")
	bannerFilter := newTestFilter(t, "^banner^")
	scopedFilter := newTestFilter(t, "/1.png$domain=site.com|www.site.com")
	exceptionFilter := newTestFilter(t, "@@^banner^$image")

	m := newTestCombined(t, 0)
	for _, f := range []urlmatcher.Filter{adsFilter, bannerFilter, scopedFilter, exceptionFilter} {
		m.Add(f)
	}

	testCases := []struct {
		name          string
		docDomain     string
		wantBlocking  []urlmatcher.Filter
		wantWhitelist []urlmatcher.Filter
		searchType    urlmatcher.SearchType
		specificOnly  bool
	}{{
		name:          "all",
		docDomain:     "www.site.com",
		wantBlocking:  []urlmatcher.Filter{adsFilter, bannerFilter, scopedFilter},
		wantWhitelist: []urlmatcher.Filter{exceptionFilter},
		searchType:    urlmatcher.SearchAll,
	}, {
		name:          "blocking",
		docDomain:     "other.com",
		wantBlocking:  []urlmatcher.Filter{adsFilter, bannerFilter},
		wantWhitelist: nil,
		searchType:    urlmatcher.SearchBlocking,
	}, {
		name:          "whitelist",
		docDomain:     "other.com",
		wantBlocking:  nil,
		wantWhitelist: []urlmatcher.Filter{exceptionFilter},
		searchType:    urlmatcher.SearchWhitelist,
	}, {
		name:          "specific_only",
		docDomain:     "www.site.com",
		wantBlocking:  []urlmatcher.Filter{scopedFilter},
		wantWhitelist: []urlmatcher.Filter{exceptionFilter},
		searchType:    urlmatcher.SearchAll,
		specificOnly:  true,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := m.Search(url, contenttype.Image, tc.docDomain, "", tc.specificOnly, tc.searchType)
			require.NotNil(t, res)

			assert.ElementsMatch(t, tc.wantBlocking, res.Blocking)
			assert.ElementsMatch(t, tc.wantWhitelist, res.Whitelist)

			// Match and search results don't mix in the cache.
			f := m.Match(url, contenttype.Image, tc.docDomain, "", tc.specificOnly)
			assert.Same(t, exceptionFilter, f)
		})
	}
}

func TestCombinedMatcher_Search_whitelistingTypes(t *testing.T) {
	t.Parallel()

	const (
		url       = "http://foo.com/"
		docDomain = "foo.com"
	)

	m := newTestCombined(t, 0)
	m.Add(newTestFilter(t, "||foo.com^$document"))

	res := m.Search(url, contenttype.Document, docDomain, "", false, urlmatcher.SearchAll)
	require.NotNil(t, res)

	assert.Empty(t, res.Blocking)
	assert.Empty(t, res.Whitelist)
	assert.Nil(t, m.Match(url, contenttype.Document, docDomain, "", false))

	exception := newTestFilter(t, "@@||foo.com^$document")
	m.Add(exception)

	res = m.Search(url, contenttype.Document, docDomain, "", false, urlmatcher.SearchAll)
	require.NotNil(t, res)

	assert.Empty(t, res.Blocking)
	assert.Equal(t, []urlmatcher.Filter{exception}, res.Whitelist)
	assert.Same(t, exception, m.Match(url, contenttype.Document, docDomain, "", false))
}

func TestSearchType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "all", urlmatcher.SearchAll.String())
	assert.Equal(t, "blocking", urlmatcher.SearchBlocking.String())
	assert.Equal(t, "whitelist", urlmatcher.SearchWhitelist.String())
	assert.Equal(t, "!bad_search_type_42", urlmatcher.SearchType(42).String())
}

func TestCombinedMatcher_load(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping the load test in short mode")
	}

	debug.SetGCPercent(10)
	t.Cleanup(func() { debug.SetGCPercent(100) })

	startHeap, startRSS := alloc(t)
	t.Logf("Allocated before loading filters (heap/RSS, kiB): %d/%d", startHeap, startRSS)

	const num = 20_000

	startLoad := time.Now()
	m := newTestCombined(t, 0)
	for i := range num {
		m.Add(newTestFilter(t, fmt.Sprintf("||host%d.example.org^", i)))
		m.Add(newTestFilter(t, fmt.Sprintf("^adpath%d^$script,third-party", i)))
		m.Add(newTestFilter(t, fmt.Sprintf("/banner%d.$image,domain=site%d.com", i, i)))
		if i%10 == 0 {
			m.Add(newTestFilter(t, fmt.Sprintf("@@||host%d.example.org/ok^", i)))
		}
	}
	t.Logf("Elapsed on loading filters: %v", time.Since(startLoad))

	loadHeap, loadRSS := alloc(t)
	t.Logf(
		"Allocated after loading filters (heap/RSS, kiB): %d/%d (%d/%d diff)",
		loadHeap,
		loadRSS,
		loadHeap-startHeap,
		loadRSS-startRSS,
	)

	startMatch := time.Now()
	matched := 0
	for i := range num {
		url := fmt.Sprintf("https://host%d.example.org/adpath%d/banner%d.png", i, i, i)
		if m.Match(url, contenttype.Image, fmt.Sprintf("site%d.com", i), "", false) != nil {
			matched++
		}
	}

	elapsed := time.Since(startMatch)
	t.Logf("Total elapsed: %v", elapsed)
	t.Logf("Average per request: %v", elapsed/num)

	assert.Equal(t, num, matched)

	matchHeap, matchRSS := alloc(t)
	t.Logf(
		"Allocated after matching (heap/RSS, kiB): %d/%d (%d/%d diff)",
		matchHeap,
		matchRSS,
		matchHeap-loadHeap,
		matchRSS-loadRSS,
	)
}

func BenchmarkCombinedMatcher_Match(b *testing.B) {
	m := newTestCombined(b, 0)
	for i := range 1000 {
		m.Add(newTestFilter(b, fmt.Sprintf("||host%d.example.org^", i)))
		m.Add(newTestFilter(b, fmt.Sprintf("@@||host%d.example.org/ok^$image", i)))
	}

	b.Run("cached", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			_ = m.Match("https://host500.example.org/ok/1.png", contenttype.Image, "", "", false)
		}
	})

	b.Run("uncached", func(b *testing.B) {
		b.ReportAllocs()
		for i := range b.N {
			url := fmt.Sprintf("https://host%d.example.org/ok/%d.png", i%1000, i)
			_ = m.Match(url, contenttype.Image, "", "", false)
		}
	})
}
