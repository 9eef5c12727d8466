package urlmatcher_test

import (
	"fmt"
	"testing"

	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_FindKeyword(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		want []string
	}{{
		name: "longest_first",
		text: "/asdf/123456^",
		want: []string{"123456", "asdf"},
	}, {
		name: "domain",
		text: "||domain.example^",
		want: []string{"example", "domain"},
	}, {
		name: "tie_keeps_first",
		text: "/123^ad2&ad&",
		want: []string{"123", "ad2"},
	}, {
		name: "least_used",
		text: "^asdf^1234^56as^",
		want: []string{"asdf", "1234", "56as"},
	}, {
		name: "wildcard_before",
		text: "*asdf/1234^",
		want: []string{"1234"},
	}, {
		name: "wildcard_after",
		text: "|asdf,1234*",
		want: []string{"asdf"},
	}, {
		name: "percent",
		text: "^foo%2Ebar^",
		want: []string{"foo%2ebar"},
	}, {
		name: "lower_case",
		text: "^aSdF^1234",
		want: []string{"asdf"},
	}, {
		name: "pattern_end",
		text: "/asdf/1234",
		want: []string{"asdf"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newTestMatcher(t)
			f := newTestFilter(t, tc.text)
			for _, want := range tc.want {
				kw := m.FindKeyword(f)
				require.Equal(t, want, kw)

				m.Add(newTestFilter(t, "^"+kw+"^"))
			}
		})
	}

	t.Run("no_keyword", func(t *testing.T) {
		t.Parallel()

		m := newTestMatcher(t)
		for _, text := range []string{
			"asdf",
			"/asdf/",
			"/asdf1234",
			"*$domain=example.org",
			"^https^com^js^",
		} {
			assert.Empty(t, m.FindKeyword(newTestFilter(t, text)), text)
		}
	})
}

func TestMatcher_Match(t *testing.T) {
	t.Parallel()

	m := newTestMatcher(
		t,
		"||ads.example.com^",
		"/banner/*/img^",
		"||tracker.org^$third-party",
		"adv$domain=example.com|~sub.example.com",
		"||video.net^$media,domain=example.com",
		"||popup.net^$popup",
		"||keyed.org^$sitekey=ABC",
		"abc$domain=foo.com|~bar.foo.com",
		"||sep.org^|",
	)

	testCases := []struct {
		name         string
		url          string
		docDomain    string
		sitekey      string
		want         string
		typeMask     contenttype.Type
		specificOnly bool
	}{{
		name:      "simple",
		url:       "https://ads.example.com/x.js",
		docDomain: "example.com",
		want:      "||ads.example.com^",
		typeMask:  contenttype.Script,
	}, {
		name:         "simple_specific_only",
		url:          "https://ads.example.com/x.js",
		docDomain:    "example.com",
		want:         "",
		typeMask:     contenttype.Script,
		specificOnly: true,
	}, {
		name:     "wildcard",
		url:      "http://example.org/banner/big/img/x.png",
		want:     "/banner/*/img^",
		typeMask: contenttype.Image,
	}, {
		name:     "wildcard_dot_not_separator",
		url:      "http://example.org/banner/big/img.png",
		want:     "",
		typeMask: contenttype.Image,
	}, {
		name:      "third_party",
		url:       "http://tracker.org/p",
		docDomain: "example.com",
		want:      "||tracker.org^$third-party",
		typeMask:  contenttype.Image,
	}, {
		name:      "first_party",
		url:       "http://tracker.org/p",
		docDomain: "www.tracker.org",
		want:      "",
		typeMask:  contenttype.Image,
	}, {
		name:      "domain_included",
		url:       "http://cdn.net/adv.gif",
		docDomain: "www.example.com",
		want:      "adv$domain=example.com|~sub.example.com",
		typeMask:  contenttype.Image,
	}, {
		name:      "domain_trailing_dot",
		url:       "http://cdn.net/adv.gif",
		docDomain: "www.example.com.",
		want:      "adv$domain=example.com|~sub.example.com",
		typeMask:  contenttype.Image,
	}, {
		name:         "domain_specific_only",
		url:          "http://cdn.net/adv.gif",
		docDomain:    "www.example.com",
		want:         "adv$domain=example.com|~sub.example.com",
		typeMask:     contenttype.Image,
		specificOnly: true,
	}, {
		name:      "domain_excluded",
		url:       "http://cdn.net/adv.gif",
		docDomain: "a.sub.example.com",
		want:      "",
		typeMask:  contenttype.Image,
	}, {
		name:      "domain_other",
		url:       "http://cdn.net/adv.gif",
		docDomain: "other.com",
		want:      "",
		typeMask:  contenttype.Image,
	}, {
		name:      "type",
		url:       "http://video.net/clip.mp4",
		docDomain: "example.com",
		want:      "||video.net^$media,domain=example.com",
		typeMask:  contenttype.Media,
	}, {
		name:      "type_mismatch",
		url:       "http://video.net/clip.mp4",
		docDomain: "example.com",
		want:      "",
		typeMask:  contenttype.Image,
	}, {
		name:     "special_type",
		url:      "http://popup.net/",
		want:     "||popup.net^$popup",
		typeMask: contenttype.Popup,
	}, {
		name:     "special_type_mismatch",
		url:      "http://popup.net/",
		want:     "",
		typeMask: contenttype.Image,
	}, {
		name:     "sitekey",
		url:      "http://keyed.org/",
		sitekey:  "abc",
		want:     "||keyed.org^$sitekey=ABC",
		typeMask: contenttype.Other,
	}, {
		name:     "sitekey_missing",
		url:      "http://keyed.org/",
		want:     "",
		typeMask: contenttype.Other,
	}, {
		name:      "domain_abc",
		url:       "http://cdn.net/abc",
		docDomain: "foo.com",
		want:      "abc$domain=foo.com|~bar.foo.com",
		typeMask:  contenttype.Other,
	}, {
		name:      "domain_abc_subdomain",
		url:       "http://cdn.net/abc",
		docDomain: "baz.foo.com",
		want:      "abc$domain=foo.com|~bar.foo.com",
		typeMask:  contenttype.Other,
	}, {
		name:      "domain_abc_excluded",
		url:       "http://cdn.net/abc",
		docDomain: "bar.foo.com",
		want:      "",
		typeMask:  contenttype.Other,
	}, {
		name:      "domain_abc_excluded_subdomain",
		url:       "http://cdn.net/abc",
		docDomain: "sub.bar.foo.com",
		want:      "",
		typeMask:  contenttype.Other,
	}, {
		name:      "domain_abc_no_document",
		url:       "http://cdn.net/abc",
		docDomain: "",
		want:      "",
		typeMask:  contenttype.Other,
	}, {
		name:     "separator_pipe",
		url:      "http://sep.org/bar",
		want:     "||sep.org^|",
		typeMask: contenttype.Other,
	}, {
		name:     "no_match",
		url:      "http://example.org/index.html",
		want:     "",
		typeMask: contenttype.Other,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := m.Match(tc.url, tc.typeMask, tc.docDomain, tc.sitekey, tc.specificOnly)
			assert.Equal(t, tc.want, filterText(got))
		})
	}
}

func TestMatcher_AddRemove(t *testing.T) {
	t.Parallel()

	const url = "https://ads.example.com/x.js"

	m := newTestMatcher(t)
	f := newTestFilter(t, "||ads.example.com^")

	m.Add(f)
	m.Add(f)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Has(f))
	assert.Same(t, f, m.Match(url, contenttype.Script, "", "", false))

	m.Remove(f)
	assert.Zero(t, m.Len())
	assert.False(t, m.Has(f))
	assert.Nil(t, m.Match(url, contenttype.Script, "", "", false))

	m.Remove(f)
	assert.Zero(t, m.Len())

	m.Add(f)
	assert.Same(t, f, m.Match(url, contenttype.Script, "", "", false))

	m.Clear()
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Match(url, contenttype.Script, "", "", false))
}

func TestMatcher_domainIndex(t *testing.T) {
	t.Parallel()

	const url = "http://a.org/foo/"

	m := newTestMatcher(t)
	bare := newTestFilter(t, "^foo^$script")
	scoped := newTestFilter(t, "^foo^$script,domain=example.com")
	excluding := newTestFilter(t, "^foo^$script,domain=~example.com")

	m.Add(bare)
	require.Equal(t, "foo", m.FindKeyword(scoped))

	m.Add(scoped)
	assert.Same(t, bare, m.Match(url, contenttype.Script, "other.com", "", false))
	assert.Same(t, scoped, m.Match(url, contenttype.Script, "www.example.com", "", false))
	assert.Same(t, scoped, m.Match(url, contenttype.Script, "www.example.com", "", true))

	m.Remove(scoped)
	assert.Same(t, bare, m.Match(url, contenttype.Script, "www.example.com", "", false))
	assert.Nil(t, m.Match(url, contenttype.Script, "www.example.com", "", true))

	m.Remove(bare)
	assert.Nil(t, m.Match(url, contenttype.Script, "other.com", "", false))

	m.Add(excluding)
	assert.Same(t, excluding, m.Match(url, contenttype.Script, "other.com", "", false))
	assert.Nil(t, m.Match(url, contenttype.Script, "www.example.com", "", false))

	m.Add(scoped)
	assert.Same(t, scoped, m.Match(url, contenttype.Script, "www.example.com", "", false))

	m.Remove(excluding)
	m.Remove(scoped)
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Match(url, contenttype.Script, "www.example.com", "", false))
}

func TestMatcher_keywordless(t *testing.T) {
	t.Parallel()

	generic := newTestFilter(t, "adv$image,domain=~example.com")
	specific := newTestFilter(t, "ban$image,domain=example.com")

	m := urlmatcher.NewMatcher(newTestConfig())
	m.Add(generic)
	m.Add(specific)

	require.Empty(t, m.FindKeyword(generic))
	require.Empty(t, m.FindKeyword(specific))

	assert.Same(t, generic, m.Match("http://x.org/adv", contenttype.Image, "other.com", "", false))
	assert.Nil(t, m.Match("http://x.org/adv", contenttype.Image, "example.com", "", false))
	assert.Same(t, specific, m.Match("http://x.org/ban", contenttype.Image, "example.com", "", false))
	assert.Nil(t, m.Match("http://x.org/ban", contenttype.Image, "other.com", "", false))

	m.Remove(generic)
	assert.Nil(t, m.Match("http://x.org/adv", contenttype.Image, "other.com", "", false))
	assert.Same(t, specific, m.Match("http://x.org/ban", contenttype.Image, "example.com", "", false))
}

func TestMatcher_manySimple(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		num  int
	}{{
		name: "single",
		num:  1,
	}, {
		name: "compiled",
		num:  3,
	}, {
		name: "too_many",
		num:  150,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newTestMatcher(t)

			// Add in the descending order so that a longer pattern is checked
			// before its prefixes.
			for i := tc.num - 1; i >= 0; i-- {
				f := newTestFilter(t, fmt.Sprintf("^shared^v%d", i))
				require.Equal(t, "shared", m.FindKeyword(f))

				m.Add(f)
			}

			last := fmt.Sprintf("^shared^v%d", tc.num-1)
			got := m.Match("http://a.org/shared/v"+fmt.Sprint(tc.num-1), contenttype.Other, "", "", false)
			assert.Equal(t, last, filterText(got))

			got = m.Match("http://a.org/shared/v0", contenttype.Other, "", "", false)
			assert.Equal(t, "^shared^v0", filterText(got))

			got = m.Match("http://a.org/shared/z", contenttype.Other, "", "", false)
			assert.Nil(t, got)

			got = m.Match("http://a.org/V0/shared/", contenttype.Other, "", "", false)
			assert.Nil(t, got)
		})
	}
}

func TestMatcher_matchCase(t *testing.T) {
	t.Parallel()

	m := newTestMatcher(t, "^Path^$match-case", "^path^v2")

	got := m.Match("http://a.org/Path/", contenttype.Other, "", "", false)
	assert.Equal(t, "^Path^$match-case", filterText(got))

	got = m.Match("http://a.org/path/", contenttype.Other, "", "", false)
	assert.Nil(t, got)

	got = m.Match("http://a.org/PATH/V2", contenttype.Other, "", "", false)
	assert.Equal(t, "^path^v2", filterText(got))
}

func BenchmarkMatcher_Match(b *testing.B) {
	m := newTestMatcher(b)
	for i := range 1000 {
		m.Add(newTestFilter(b, fmt.Sprintf("||host%d.example.org^", i)))
		m.Add(newTestFilter(b, fmt.Sprintf("/path%d/*/banner^$image,domain=site%d.com", i, i)))
	}

	b.ReportAllocs()
	for range b.N {
		_ = m.Match("https://cdn.example.org/path500/x/banner.png", contenttype.Image, "site500.com", "", false)
	}
}
