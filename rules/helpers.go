package rules

import "strings"

// splitWithEscapeCharacter splits str by sep unless it is escaped with esc.
// Empty tokens are only kept if preserveAllTokens is true.
func splitWithEscapeCharacter(str string, sep, esc byte, preserveAllTokens bool) (parts []string) {
	if str == "" {
		return nil
	}

	var sb strings.Builder
	escaped := false
	for i := range len(str) {
		c := str[i]

		switch {
		case c == esc && !escaped:
			escaped = true
		case c == sep && !escaped:
			if preserveAllTokens || sb.Len() > 0 {
				parts = append(parts, sb.String())
				sb.Reset()
			}
		default:
			if escaped && c != sep {
				sb.WriteByte(esc)
			}

			escaped = false
			sb.WriteByte(c)
		}
	}

	if escaped {
		sb.WriteByte(esc)
	}

	if preserveAllTokens || sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}

// hasMasks returns true if pattern contains any of the special characters of
// filter patterns and so can't be matched as a plain substring.
func hasMasks(pattern string) (ok bool) {
	return strings.ContainsAny(pattern, "*^|")
}
