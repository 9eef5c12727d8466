package filterutil

import "strings"

// isAddrRune returns true if r is a valid rune of string representation of an
// IP address, including the hexadecimal IPv4 notation like "0x7f.1".
func isAddrRune(r rune) (ok bool) {
	switch {
	case r == '.', r == ':',
		r >= '0' && r <= '9',
		r >= 'A' && r <= 'F',
		r >= 'a' && r <= 'f',
		r == 'x', r == 'X',
		r == '[', r == ']':
		return true
	default:
		return false
	}
}

// IsProbablyIP returns true if s only contains characters that can be part of
// an IP address.  It's needed to avoid unnecessary work for the common case of
// domain names.
func IsProbablyIP(s string) (ok bool) {
	for _, r := range s {
		if !isAddrRune(r) {
			return false
		}
	}

	return len(s) >= len("::")
}

// IsIPAddress returns true if hostname is an IP literal as it appears in the
// host part of a URL: either an IPv6 address in square brackets or an IPv4
// address of one to four parts, each decimal or "0x"-prefixed hexadecimal.
// Browsers accept all of these IPv4 forms, so "0x7f.1" is the same host as
// "127.0.0.1".
func IsIPAddress(hostname string) (ok bool) {
	if !IsProbablyIP(hostname) {
		// Single-digit hosts like "1" are still IPv4 literals.
		return len(hostname) == 1 && isDecimal(hostname)
	}

	if hostname[0] == '[' {
		return hostname[len(hostname)-1] == ']'
	}

	parts := strings.Split(hostname, ".")
	if len(parts) > 4 {
		return false
	}

	for _, part := range parts {
		if !isIPv4Part(part) {
			return false
		}
	}

	return true
}

// isIPv4Part returns true if part is a decimal or "0x"-prefixed hexadecimal
// number.
func isIPv4Part(part string) (ok bool) {
	if len(part) > 2 && part[0] == '0' && (part[1] == 'x' || part[1] == 'X') {
		return isHex(part[2:])
	}

	return isDecimal(part)
}

// isDecimal returns true if s is a non-empty string of decimal digits.
func isDecimal(s string) (ok bool) {
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return false
		}
	}

	return s != ""
}

// isHex returns true if s is a non-empty string of hexadecimal digits.
func isHex(s string) (ok bool) {
	for _, c := range []byte(s) {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return s != ""
}
