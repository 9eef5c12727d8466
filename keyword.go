package urlmatcher

import (
	"iter"
	"strings"
)

// minKeywordLength is the minimum length of a keyword.
const minKeywordLength = 2

// isBadKeyword returns true for the keywords that are present in too many URLs
// to be useful.
func isBadKeyword(kw string) (ok bool) {
	switch kw {
	case "https", "http", "com", "js":
		return true
	default:
		return false
	}
}

// isKeywordChar returns true if c can be a part of a keyword.
func isKeywordChar(c byte) (ok bool) {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '%'
}

// patternKeywords returns the keyword candidates of the lower-case filter
// pattern p: runs of keyword characters that are delimited on both sides by
// characters that are neither keyword characters nor wildcards.  Runs at the
// very beginning or end of the pattern could continue in the URL, so they are
// not candidates.
func patternKeywords(p string) (seq iter.Seq[string]) {
	return func(yield func(string) bool) {
		for i := 0; i < len(p); {
			if !isKeywordChar(p[i]) {
				i++

				continue
			}

			start := i
			for i < len(p) && isKeywordChar(p[i]) {
				i++
			}

			if i-start < minKeywordLength ||
				start == 0 || p[start-1] == '*' ||
				i == len(p) || p[i] == '*' {
				continue
			}

			if !yield(p[start:i]) {
				return
			}
		}
	}
}

// urlKeywords returns the keyword candidates of the lower-case URL u, in the
// order they appear, followed by the empty keyword.
func urlKeywords(u string) (seq iter.Seq[string]) {
	return func(yield func(string) bool) {
		for i := 0; i < len(u); {
			if !isKeywordChar(u[i]) {
				i++

				continue
			}

			start := i
			for i < len(u) && isKeywordChar(u[i]) {
				i++
			}

			if i-start >= minKeywordLength && !yield(u[start:i]) {
				return
			}
		}

		yield("")
	}
}

// FindKeyword returns the keyword m would index f by if it were added now: the
// pattern keyword with the fewest filters already indexed by it, the longest
// one in case of a tie.  The result is empty if there are no suitable
// keywords.
func (m *Matcher) FindKeyword(f Filter) (kw string) {
	p := f.Pattern()
	if p == "" {
		return ""
	}

	bestCount, bestLen := -1, 0
	for cand := range patternKeywords(strings.ToLower(p)) {
		if isBadKeyword(cand) {
			continue
		}

		count := m.simple.Count(cand) + m.complex.Count(cand)
		if bestCount == -1 || count < bestCount || (count == bestCount && len(cand) > bestLen) {
			kw, bestCount, bestLen = cand, count, len(cand)
		}
	}

	return kw
}
