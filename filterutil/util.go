// Package filterutil contains the domain helpers used for matching: hostname
// normalization, domain suffixes, base domains and third-party checks.
package filterutil

import (
	"iter"
	"strings"

	"github.com/miekg/dns"
)

// NormalizeHostname strips any number of trailing dots from h.
func NormalizeHostname(h string) (normalized string) {
	return strings.TrimRight(h, ".")
}

// DomainSuffixes returns the sequence of domain, then each suffix of it
// obtained by dropping the leftmost label, from the most specific one to the
// least specific one.  If includeBlank is true, the sequence ends with an
// empty string.  For example, "www.example.co.uk" yields "www.example.co.uk",
// "example.co.uk", "co.uk", and "uk".
func DomainSuffixes(domain string, includeBlank bool) (seq iter.Seq[string]) {
	return func(yield func(string) bool) {
		if domain != "" {
			for _, off := range dns.Split(domain) {
				if off >= len(domain) || !yield(domain[off:]) {
					return
				}
			}
		}

		if includeBlank {
			yield("")
		}
	}
}
