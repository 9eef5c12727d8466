package pattern

import (
	"regexp"
	"strings"
)

// CompileMax is the maximum number of sources [Compile] merges.  Larger
// expressions are slower to build than the per-filter checks they replace.
const CompileMax = 100

// Source is a regular expression source of a single filter.
type Source struct {
	// Regexp is the source of the expression.  Use [ToRegexp] to get it from
	// a filter pattern.
	Regexp string

	// MatchCase is true if the expression is case-sensitive.
	MatchCase bool
}

// Compiled is a pair of combined regular expressions.  A URL that matches
// neither of them can't match any of the filters they were built from.
type Compiled struct {
	caseSensitive   *regexp.Regexp
	caseInsensitive *regexp.Regexp
}

// Compile merges srcs into at most two regular expressions.  It returns nil if
// srcs is empty, if there are more than [CompileMax] sources, or if the
// combined expressions fail to compile.  A nil result means that there is no
// quick check available, not that something went wrong.
func Compile(srcs []Source) (c *Compiled) {
	if len(srcs) == 0 || len(srcs) > CompileMax {
		return nil
	}

	var sensitive, insensitive []string
	for _, s := range srcs {
		// Group every source so that inline flags and alternations don't leak
		// into the neighbors.
		grouped := "(?:" + s.Regexp + ")"
		if s.MatchCase {
			sensitive = append(sensitive, grouped)
		} else {
			insensitive = append(insensitive, grouped)
		}
	}

	c = &Compiled{}

	var err error
	if len(sensitive) > 0 {
		c.caseSensitive, err = regexp.Compile(strings.Join(sensitive, "|"))
		if err != nil {
			return nil
		}
	}

	if len(insensitive) > 0 {
		c.caseInsensitive, err = regexp.Compile("(?i)" + strings.Join(insensitive, "|"))
		if err != nil {
			return nil
		}
	}

	return c
}

// Test returns true if href or its lower-case version lowerHref could match
// one of the compiled sources.
func (c *Compiled) Test(href, lowerHref string) (ok bool) {
	return (c.caseSensitive != nil && c.caseSensitive.MatchString(href)) ||
		(c.caseInsensitive != nil && c.caseInsensitive.MatchString(lowerHref))
}
