package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/internal/pattern"
)

const (
	maskWhiteList    = "@@"
	maskRegexRule    = "/"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

// NetworkRule is a basic URL filtering rule in the Adblock Plus syntax, for
// example "||example.org^$script,domain=example.com".  It is immutable after
// creation and safe for concurrent use.
type NetworkRule struct {
	// mu protects regex and compileState.
	mu *sync.Mutex

	// regex is the regular expression compiled from the pattern or given
	// explicitly.  It's nil for substring patterns.
	regex *regexp.Regexp

	// domains are the $domain restrictions.  nil means everywhere.
	domains map[string]bool

	text         string
	pattern      string
	regexpSource string
	csp          string

	// sitekeys are the upper-case $sitekey values.
	sitekeys []string

	contentType contenttype.Type

	// compileState is 0 when the pattern has not been compiled yet, 1 when
	// regex is ready, and -1 when the pattern failed to compile.
	compileState int8

	thirdParty Party
	kind       Kind
	matchCase  bool
}

// NewNetworkRule parses a network rule from text.  Any error returned is a
// *RuleSyntaxError.
func NewNetworkRule(text string) (r *NetworkRule, err error) {
	text = strings.TrimSpace(text)

	p, options, whitelist, err := parseRuleText(text)
	if err != nil {
		return nil, &RuleSyntaxError{err: err, ruleText: text}
	}

	r = &NetworkRule{
		mu:          &sync.Mutex{},
		text:        text,
		contentType: contenttype.ResourceTypes,
	}

	if whitelist {
		r.kind = KindWhitelist
	}

	err = r.loadOptions(options)
	if err != nil {
		return nil, &RuleSyntaxError{err: err, ruleText: text}
	}

	err = r.loadPattern(p)
	if err != nil {
		return nil, &RuleSyntaxError{err: err, ruleText: text}
	}

	return r, nil
}

// loadPattern sets either the pattern or the explicit regular expression of r.
// Options must be loaded already.
func (r *NetworkRule) loadPattern(p string) (err error) {
	if len(p) > 2 && strings.HasPrefix(p, maskRegexRule) && strings.HasSuffix(p, maskRegexRule) {
		r.regexpSource = p[1 : len(p)-1]

		src := r.regexpSource
		if !r.matchCase {
			src = "(?i)" + src
		}

		r.regex, err = regexp.Compile(src)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRegexp, err)
		}

		r.compileState = 1

		return nil
	}

	if !r.matchCase {
		p = strings.ToLower(p)
	}

	if p == pattern.MaskStartURL || p == pattern.MaskPipe || strings.Trim(p, "*") == "" {
		if r.domains == nil && r.sitekeys == nil {
			return ErrTooWideRule
		}
	}

	r.pattern = p
	if !hasMasks(p) {
		// Plain substrings are matched without regular expressions.
		r.compileState = 1
	}

	return nil
}

// parseRuleText splits the rule text into the pattern and the options.
func parseRuleText(text string) (p, options string, whitelist bool, err error) {
	startIndex := 0
	if strings.HasPrefix(text, maskWhiteList) {
		whitelist = true
		startIndex = len(maskWhiteList)
	}

	if len(text) <= startIndex {
		return "", "", false, fmt.Errorf("the rule is too short: %q", text)
	}

	p = text[startIndex:]

	// Avoid parsing options inside of a regex rule.
	if strings.HasPrefix(p, maskRegexRule) && strings.HasSuffix(p, maskRegexRule) {
		return p, "", whitelist, nil
	}

	foundEscaped := false
	for i := len(text) - 2; i >= startIndex; i-- {
		if text[i] != optionsDelimiter {
			continue
		}

		if i > startIndex && text[i-1] == escapeCharacter {
			foundEscaped = true

			continue
		}

		p = text[startIndex:i]
		options = text[i+1:]
		if foundEscaped {
			options = strings.ReplaceAll(options, `\$`, "$")
		}

		break
	}

	return p, options, whitelist, nil
}

// loadOptions parses the comma-separated options of the rule.
func (r *NetworkRule) loadOptions(options string) (err error) {
	// hasTypes is true once an option sets a type explicitly, the first
	// positive type replaces the default.
	hasTypes := false
	for _, option := range splitWithEscapeCharacter(options, ',', escapeCharacter, false) {
		name, value, _ := strings.Cut(option, "=")
		name = strings.ToLower(strings.TrimSpace(name))

		inverse := strings.HasPrefix(name, "~")
		if inverse {
			name = name[1:]
		}

		if name == "csp" && !inverse {
			// $csp is the only type with a value.
			r.csp = value
		}

		t, ok := contenttype.FromName(strings.ReplaceAll(name, "_", "-"))
		if ok {
			if inverse {
				r.contentType &^= t
			} else {
				if !hasTypes {
					r.contentType = 0
				}

				r.contentType |= t
			}

			hasTypes = true

			continue
		}

		err = r.loadOption(name, value, inverse)
		if err != nil {
			return fmt.Errorf("option %q: %w", option, err)
		}
	}

	return nil
}

// loadOption loads a single option that isn't a content type.
func (r *NetworkRule) loadOption(name, value string, inverse bool) (err error) {
	switch name {
	case "match-case":
		r.matchCase = !inverse
	case "third-party":
		r.thirdParty = PartyThird
		if inverse {
			r.thirdParty = PartyFirst
		}
	case "first-party":
		r.thirdParty = PartyFirst
		if inverse {
			r.thirdParty = PartyThird
		}
	case "domain":
		r.domains, err = loadDomains(value, '|')
	case "sitekey":
		if value == "" {
			return ErrEmptyValue
		}

		r.sitekeys = strings.Split(strings.ToUpper(value), "|")
	default:
		return ErrUnknownOption
	}

	return err
}

// Text returns the original rule text.
func (r *NetworkRule) Text() (s string) { return r.text }

// String implements the [fmt.Stringer] interface for *NetworkRule.
func (r *NetworkRule) String() (s string) { return r.text }

// Pattern returns the wildcard pattern of the rule, lower-cased unless the
// rule is $match-case.  It's empty for regular expression rules.
func (r *NetworkRule) Pattern() (p string) { return r.pattern }

// RegexpSource returns the source of the explicit regular expression of the
// rule, if any.
func (r *NetworkRule) RegexpSource() (src string) { return r.regexpSource }

// MatchCase returns true if the rule is case-sensitive.
func (r *NetworkRule) MatchCase() (ok bool) { return r.matchCase }

// Domains returns the $domain restrictions of the rule.  nil means the rule
// applies everywhere.  The result must not be modified.
func (r *NetworkRule) Domains() (domains map[string]bool) { return r.domains }

// ContentType returns the content types the rule applies to.
func (r *NetworkRule) ContentType() (t contenttype.Type) { return r.contentType }

// Sitekeys returns the upper-case $sitekey values.  The result must not be
// modified.
func (r *NetworkRule) Sitekeys() (keys []string) { return r.sitekeys }

// ThirdParty returns the $third-party restriction.
func (r *NetworkRule) ThirdParty() (p Party) { return r.thirdParty }

// CSP returns the value of the $csp option.
func (r *NetworkRule) CSP() (csp string) { return r.csp }

// Kind returns the polarity of the rule.
func (r *NetworkRule) Kind() (k Kind) { return r.kind }

// IsLocationOnly returns true if only the URL decides whether the rule
// matches.
func (r *NetworkRule) IsLocationOnly() (ok bool) {
	return r.contentType == contenttype.ResourceTypes &&
		r.thirdParty == PartyAny &&
		r.domains == nil &&
		r.sitekeys == nil
}

// IsGeneric returns true if the rule is not restricted to specific sites.
func (r *NetworkRule) IsGeneric() (ok bool) {
	return len(r.sitekeys) == 0 && (r.domains == nil || r.domains[""])
}

// IsActiveOnDomain returns true if the rule applies to documents at docDomain
// with the given sitekey.  docDomain must be normalized and lower-cased.
func (r *NetworkRule) IsActiveOnDomain(docDomain, sitekey string) (ok bool) {
	if !r.matchesSitekey(sitekey) {
		return false
	}

	if r.domains == nil {
		return true
	}

	for suffix := range filterutil.DomainSuffixes(docDomain, true) {
		if include, has := r.domains[suffix]; has {
			return include
		}
	}

	return false
}

// matchesSitekey returns true if the rule has no sitekeys or sitekey is one of
// them.
func (r *NetworkRule) matchesSitekey(sitekey string) (ok bool) {
	if r.sitekeys == nil {
		return true
	}

	return sitekey != "" && slices.Contains(r.sitekeys, strings.ToUpper(sitekey))
}

// Matches returns true if the rule matches the request with any of the types
// in typeMask.
func (r *NetworkRule) Matches(req *Request, typeMask contenttype.Type, sitekey string) (ok bool) {
	return r.contentType&typeMask != 0 &&
		r.matchesParty(req) &&
		r.IsActiveOnDomain(req.DocumentHostname, sitekey) &&
		r.MatchesLocation(req)
}

// MatchesWithoutDomain is like [NetworkRule.Matches] but ignores the $domain
// restrictions, which the caller has already checked.
func (r *NetworkRule) MatchesWithoutDomain(
	req *Request,
	typeMask contenttype.Type,
	sitekey string,
) (ok bool) {
	return r.contentType&typeMask != 0 &&
		r.matchesParty(req) &&
		r.matchesSitekey(sitekey) &&
		r.MatchesLocation(req)
}

// matchesParty checks the $third-party restriction.
func (r *NetworkRule) matchesParty(req *Request) (ok bool) {
	switch r.thirdParty {
	case PartyThird:
		return req.ThirdParty()
	case PartyFirst:
		return !req.ThirdParty()
	default:
		return true
	}
}

// MatchesLocation returns true if the URL of the request matches the pattern
// or the regular expression of the rule.
func (r *NetworkRule) MatchesLocation(req *Request) (ok bool) {
	url := req.LowerCaseURL()
	if r.matchCase {
		url = req.URL
	}

	re, ok := r.compile()
	if !ok {
		return false
	} else if re == nil {
		return strings.Contains(url, r.pattern)
	}

	return re.MatchString(url)
}

// compile returns the regular expression of the rule compiling it if
// necessary.  re is nil for substring patterns.  ok is false if the pattern
// can't be compiled.
func (r *NetworkRule) compile() (re *regexp.Regexp, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.compileState == 0 {
		r.regex, r.compileState = r.compilePattern()
	}

	return r.regex, r.compileState == 1
}

// compilePattern compiles the wildcard pattern of the rule.
func (r *NetworkRule) compilePattern() (re *regexp.Regexp, state int8) {
	src := pattern.ToRegexp(r.pattern)
	if !r.matchCase {
		src = "(?i)" + src
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, -1
	}

	return re, 1
}
