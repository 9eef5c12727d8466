package filterutil

import "github.com/AdguardTeam/urlmatcher/suffixlist"

// Domains computes base domains and third-party relations using a public
// suffix table.  It is safe for concurrent use as long as the table is.
type Domains struct {
	suffixes suffixlist.Table
}

// NewDomains returns a new *Domains that uses t.  t must not be nil.
func NewDomains(t suffixlist.Table) (d *Domains) {
	return &Domains{
		suffixes: t,
	}
}

// BaseDomain returns the registrable domain of hostname, for example
// "example.co.uk" for "www.example.co.uk".  If no suffix of hostname is a
// known public suffix, the last two labels are used.  hostname should be
// normalized.
func (d *Domains) BaseDomain(hostname string) (base string) {
	var slices []string
	for suffix := range DomainSuffixes(hostname, false) {
		slices = append(slices, suffix)

		offset, ok := d.suffixes.Offset(suffix)
		if !ok {
			continue
		}

		cutoff := len(slices) - 1 - offset
		if cutoff <= 0 {
			return hostname
		}

		return slices[cutoff]
	}

	if len(slices) > 2 {
		return slices[len(slices)-2]
	}

	return hostname
}

// IsThirdParty returns true if a request to reqHost from a document at
// docHost is a third-party one.  Hostnames are compared without the trailing
// dots.  An empty hostname is always third-party to a non-empty one.  IP
// literals are never reduced to base domains.
func (d *Domains) IsThirdParty(reqHost, docHost string) (ok bool) {
	reqHost, docHost = NormalizeHostname(reqHost), NormalizeHostname(docHost)
	if reqHost == docHost {
		return false
	} else if reqHost == "" || docHost == "" {
		return true
	}

	if IsIPAddress(reqHost) || IsIPAddress(docHost) {
		return true
	}

	return d.BaseDomain(reqHost) != d.BaseDomain(docHost)
}
