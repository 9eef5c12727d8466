// Package urlmatcher contains the matchers that decide which filtering rules
// apply to a URL request.  [Matcher] indexes rules of a single kind, blocking
// or exception, and [CombinedMatcher] pairs the two and caches the results.
package urlmatcher

import (
	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/rules"
)

// Filter is a URL filtering rule as seen by the matchers.  Filters are
// compared by identity, so implementations must be comparable and are
// usually pointers.  The matchers never modify filters, and a filter must not
// change while it's added to a matcher.
type Filter interface {
	// Text returns the original text of the filter.
	Text() (s string)

	// Pattern returns the lower-case wildcard pattern of the filter, unless
	// the filter is case-sensitive.  It is empty if the filter is a regular
	// expression.
	Pattern() (p string)

	// RegexpSource returns the source of the regular expression of the filter
	// or an empty string if the filter has a pattern instead.
	RegexpSource() (src string)

	// MatchCase returns true if the filter is case-sensitive.
	MatchCase() (ok bool)

	// Domains returns the domain restrictions of the filter.  nil means that
	// the filter applies everywhere.
	Domains() (domains map[string]bool)

	// ContentType returns the types the filter applies to.
	ContentType() (t contenttype.Type)

	// Kind returns the polarity of the filter.
	Kind() (k rules.Kind)

	// IsLocationOnly returns true if only the URL decides whether the filter
	// matches.
	IsLocationOnly() (ok bool)

	// IsGeneric returns true if the filter isn't restricted to specific sites.
	IsGeneric() (ok bool)

	// Matches returns true if the filter matches the request.
	Matches(r *rules.Request, typeMask contenttype.Type, sitekey string) (ok bool)

	// MatchesWithoutDomain is like Matches but skips the domain restrictions.
	MatchesWithoutDomain(r *rules.Request, typeMask contenttype.Type, sitekey string) (ok bool)

	// MatchesLocation returns true if the URL of the request matches the
	// pattern of the filter.
	MatchesLocation(r *rules.Request) (ok bool)
}

// type check
var _ Filter = (*rules.NetworkRule)(nil)
