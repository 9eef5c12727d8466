// Package pattern translates filter patterns into regular expressions and
// merges them into combined expressions used to reject URLs quickly.
package pattern

import "strings"

// Special characters of filter patterns.
const (
	MaskStartURL     = "||"
	MaskPipe         = "|"
	MaskSeparator    = '^'
	MaskAnyCharacter = '*'
)

// Regular expression fragments the masks are translated into.
const (
	// RegexStartURL matches a scheme and an optional chain of subdomains.
	// RE2 has no lookahead, so a "/" right after the scheme slashes isn't
	// rejected.
	RegexStartURL = `^[\w\-]+:\/+([^\/]+\.)?`

	// RegexSeparator matches any character that is not a letter, a digit, or
	// one of "_-.%", as well as the end of the string.
	RegexSeparator = `(?:[\x00-\x24\x26-\x2C\x2F\x3A-\x40\x5B-\x5E\x60\x7B-\x7F]|$)`

	RegexAnyCharacter = ".*"
	RegexStartString  = "^"
	RegexEndString    = "$"
)

// isSpecial returns true if c must be escaped in a regular expression.  "*"
// and "^" are masks and are never escaped.
func isSpecial(c byte) (ok bool) {
	switch c {
	case '.', '+', '?', '$', '{', '}', '(', ')', '[', ']', '/', '\\', '|':
		return true
	default:
		return false
	}
}

// ToRegexp returns the regular expression source equivalent to the filter
// pattern p.  Explicit regular expressions, like "/ads?/", are not patterns
// and must not be passed here.
func ToRegexp(p string) (re string) {
	if p == "" || p == MaskStartURL || p == MaskPipe || p == string(MaskAnyCharacter) {
		return RegexAnyCharacter
	}

	b := &strings.Builder{}
	b.Grow(len(p) * 2)

	if strings.HasPrefix(p, MaskStartURL) {
		b.WriteString(RegexStartURL)
		p = p[len(MaskStartURL):]
	} else if strings.HasPrefix(p, MaskPipe) {
		b.WriteString(RegexStartString)
		p = p[len(MaskPipe):]
	}

	// A trailing "^|" is the same as "^", since the separator already
	// matches the end of the string.
	if strings.HasSuffix(p, string(MaskSeparator)+MaskPipe) {
		p = p[:len(p)-len(MaskPipe)]
	}

	anchorEnd := strings.HasSuffix(p, MaskPipe)
	if anchorEnd {
		p = p[:len(p)-len(MaskPipe)]
	}

	for i := range len(p) {
		switch c := p[i]; {
		case c == MaskAnyCharacter:
			// Collapse "**" into a single wildcard.
			if i == 0 || p[i-1] != MaskAnyCharacter {
				b.WriteString(RegexAnyCharacter)
			}
		case c == MaskSeparator:
			b.WriteString(RegexSeparator)
		case isSpecial(c):
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	if anchorEnd {
		b.WriteString(RegexEndString)
	}

	return b.String()
}
