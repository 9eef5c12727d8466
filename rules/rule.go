// Package rules contains the network filtering rules that the matchers index
// and the request view they are matched against.
package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/internal/ufnet"
)

const (
	// ErrUnsupportedRule signals that this might be a valid rule type, but it
	// is not supported by this library, for example an element hiding rule.
	ErrUnsupportedRule errors.Error = "this type of rules is unsupported"

	// ErrUnknownOption is returned for options the parser doesn't know.
	ErrUnknownOption errors.Error = "unknown option"

	// ErrEmptyValue is returned for options that require a value but have
	// none.
	ErrEmptyValue errors.Error = "empty option value"

	// ErrInvalidDomain is returned for $domain values that are neither domain
	// names nor IP addresses.
	ErrInvalidDomain errors.Error = "invalid domain"

	// ErrInvalidRegexp is returned for regular expression rules that don't
	// compile.
	ErrInvalidRegexp errors.Error = "invalid regexp"

	// ErrTooWideRule is returned if the rule matches all URLs but has no
	// domain or sitekey restrictions.
	ErrTooWideRule errors.Error = "the rule is too wide, add domain or sitekey restrictions " +
		"or make it more specific"
)

// RuleSyntaxError represents an error while parsing a filtering rule.
type RuleSyntaxError struct {
	err      error
	ruleText string
}

// type check
var _ errors.Wrapper = (*RuleSyntaxError)(nil)

// Error implements the error interface for *RuleSyntaxError.
func (e *RuleSyntaxError) Error() (msg string) {
	return fmt.Sprintf("syntax error: %s, rule: %s", e.err, e.ruleText)
}

// Unwrap implements the [errors.Wrapper] interface for *RuleSyntaxError.
func (e *RuleSyntaxError) Unwrap() (err error) {
	return e.err
}

// Kind is the polarity of a rule.
type Kind uint8

// Kind values.
const (
	KindBlocking Kind = iota
	KindWhitelist
)

// String implements the [fmt.Stringer] interface for Kind.
func (k Kind) String() (s string) {
	switch k {
	case KindBlocking:
		return "blocking"
	case KindWhitelist:
		return "whitelist"
	default:
		return fmt.Sprintf("!bad_kind_%d", uint8(k))
	}
}

// Party is the $third-party restriction of a rule.
type Party uint8

// Party values.
const (
	// PartyAny means that the rule has no $third-party option.
	PartyAny Party = iota

	// PartyThird means $third-party.
	PartyThird

	// PartyFirst means $~third-party or $first-party.
	PartyFirst
)

// cosmeticMarkers are the separators of element hiding and snippet rules.
var cosmeticMarkers = []string{"##", "#@#", "#?#", "#@?#", "#$#", "#@$#"}

// NewRule creates a new network rule from the line.  It returns nil and no
// error if the line is empty or a comment, and [ErrUnsupportedRule] for
// element hiding and snippet rules.
func NewRule(line string) (r *NetworkRule, err error) {
	line = strings.TrimSpace(line)
	if line == "" || isComment(line) {
		return nil, nil
	}

	if isCosmetic(line) {
		return nil, &RuleSyntaxError{err: ErrUnsupportedRule, ruleText: line}
	}

	return NewNetworkRule(line)
}

// isComment checks if the line is a comment or a list header.
func isComment(line string) (ok bool) {
	switch line[0] {
	case '!':
		return true
	case '[':
		return strings.HasPrefix(line, "[Adblock")
	case '#':
		return !isCosmetic(line)
	default:
		return false
	}
}

// isCosmetic checks if the line contains any of the cosmetic markers.
func isCosmetic(line string) (ok bool) {
	for _, marker := range cosmeticMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}

	return false
}

// loadDomains parses the value of the $domain option.  Domains are separated
// by sep and excluded ones are prefixed with "~".  If there are only
// exclusions, the blank domain is included so that the rule applies
// everywhere else.
func loadDomains(value string, sep byte) (domains map[string]bool, err error) {
	if value == "" {
		return nil, ErrEmptyValue
	}

	domains = map[string]bool{}
	hasIncludes := false
	for _, d := range splitWithEscapeCharacter(value, sep, escapeCharacter, true) {
		include := true
		if strings.HasPrefix(d, "~") {
			include = false
			d = d[1:]
		}

		d = filterutil.NormalizeHostname(strings.ToLower(d))
		if !ufnet.IsDomainName(d) && !filterutil.IsIPAddress(d) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, d)
		}

		domains[d] = include
		hasIncludes = hasIncludes || include
	}

	if !hasIncludes {
		domains[""] = true
	}

	return domains, nil
}
