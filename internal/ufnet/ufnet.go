// Package ufnet extracts and validates hostnames.
package ufnet

import "strings"

// ExtractHostname returns the host part of url without parsing the whole URL.
// The userinfo and the port are dropped, IPv6 hosts keep their brackets.  For
// URLs without an authority, like "stun:host", it's best-effort.
func ExtractHostname(url string) (hostname string) {
	firstIdx := strings.Index(url, "//")
	if firstIdx == -1 {
		// No authority, see RFC 7064 for stun: and turn: URLs.
		firstIdx = strings.Index(url, ":")
		if firstIdx == -1 {
			return ""
		}

		firstIdx = firstIdx - 1
	} else {
		firstIdx = firstIdx + 2
	}

	if firstIdx < 0 {
		return ""
	}

	authority := url[firstIdx:]
	if end := strings.IndexAny(authority, "/?#"); end != -1 {
		authority = authority[:end]
	}

	if at := strings.LastIndexByte(authority, '@'); at != -1 {
		authority = authority[at+1:]
	}

	if strings.HasPrefix(authority, "[") {
		if end := strings.IndexByte(authority, ']'); end != -1 {
			return authority[:end+1]
		}

		return ""
	}

	if colon := strings.IndexByte(authority, ':'); colon != -1 {
		authority = authority[:colon]
	}

	return authority
}

// Limits of hostnames, see RFC 1035.
const (
	maxDomainLen = 253
	maxLabelLen  = 63
)

// idnaPrefix is the prefix of the ASCII form of internationalized labels.
const idnaPrefix = "xn--"

// IsDomainName returns true if name is a hostname made of dot-separated
// labels of letters, digits, and hyphens, none of which starts or ends with a
// hyphen.  The last label must be at least two characters long and either
// purely alphabetic or an IDNA one, like "xn--p1ai".
func IsDomainName(name string) (ok bool) {
	if name == "" || len(name) > maxDomainLen {
		return false
	}

	labels := strings.Split(name, ".")
	for _, l := range labels {
		if !isLabel(l) {
			return false
		}
	}

	return isTopLabel(labels[len(labels)-1])
}

// isLabel returns true if l is a valid non-empty hostname label.
func isLabel(l string) (ok bool) {
	if l == "" || len(l) > maxLabelLen || l[0] == '-' || l[len(l)-1] == '-' {
		return false
	}

	for i := range len(l) {
		if c := l[i]; !isLetter(c) && !isDigit(c) && c != '-' {
			return false
		}
	}

	return true
}

// isTopLabel returns true if l can be the last label of a hostname.
func isTopLabel(l string) (ok bool) {
	if len(l) < 2 {
		return false
	}

	if len(l) > len(idnaPrefix)+3 && strings.EqualFold(l[:len(idnaPrefix)], idnaPrefix) {
		return true
	}

	for i := range len(l) {
		if !isLetter(l[i]) {
			return false
		}
	}

	return true
}

func isLetter(c byte) (ok bool) { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) (ok bool) { return c >= '0' && c <= '9' }
