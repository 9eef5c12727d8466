package rules

import (
	"strings"

	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/internal/ufnet"
)

// maxURLLength limits the URL length by 4 KiB.  It appears that there can be
// URLs longer than a megabyte, and it makes no sense to go through the whole
// URL.
const maxURLLength = 4 * 1024

// memo flags of [Request].
const (
	memoLowerCase uint8 = 1 << iota
	memoHostname
	memoThirdParty
)

// Request is a URL being matched along with the properties derived from it.
// The derived properties are computed on first use.  A Request is not safe
// for concurrent use.
type Request struct {
	domains *filterutil.Domains

	// URL is the full request URL.
	URL string

	// DocumentHostname is the normalized lower-case hostname of the document
	// that makes the request.  It's empty if unknown.
	DocumentHostname string

	lowerCaseURL string
	hostname     string

	memo       uint8
	thirdParty bool
}

// NewRequest returns a new request for url made by a document at docDomain.
// d is used for the third-party check and must not be nil.
func NewRequest(url, docDomain string, d *filterutil.Domains) (r *Request) {
	if len(url) > maxURLLength {
		url = url[:maxURLLength]
	}

	return &Request{
		domains:          d,
		URL:              url,
		DocumentHostname: filterutil.NormalizeHostname(strings.ToLower(docDomain)),
	}
}

// LowerCaseURL returns the URL in lower case.
func (r *Request) LowerCaseURL() (url string) {
	if r.memo&memoLowerCase == 0 {
		r.lowerCaseURL = strings.ToLower(r.URL)
		r.memo |= memoLowerCase
	}

	return r.lowerCaseURL
}

// Hostname returns the normalized lower-case hostname of the URL.
func (r *Request) Hostname() (hostname string) {
	if r.memo&memoHostname == 0 {
		hostname = ufnet.ExtractHostname(r.LowerCaseURL())
		r.hostname = filterutil.NormalizeHostname(hostname)
		r.memo |= memoHostname
	}

	return r.hostname
}

// ThirdParty returns true if the request is a third-party one for its
// document.
func (r *Request) ThirdParty() (ok bool) {
	if r.memo&memoThirdParty == 0 {
		r.thirdParty = r.domains.IsThirdParty(r.Hostname(), r.DocumentHostname)
		r.memo |= memoThirdParty
	}

	return r.thirdParty
}
