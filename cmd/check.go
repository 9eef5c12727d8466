package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/internal/ufnet"
	"github.com/AdguardTeam/urlmatcher/rules"
)

// errBadQuery is returned for the malformed query lines.
const errBadQuery errors.Error = "bad query"

// query is a single request to check.
type query struct {
	url       string
	docDomain string
	typeName  string
}

// parseQuery parses a line of the form "URL [TYPE [DOCDOMAIN]]".
func parseQuery(line, defaultType, defaultDoc string) (q query, err error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
		return query{url: fields[0], typeName: defaultType, docDomain: defaultDoc}, nil
	case 2:
		return query{url: fields[0], typeName: fields[1], docDomain: defaultDoc}, nil
	case 3:
		return query{url: fields[0], typeName: fields[1], docDomain: fields[2]}, nil
	default:
		return query{}, fmt.Errorf("%w: %d fields", errBadQuery, len(fields))
	}
}

// checker checks queries and prints the results.
type checker struct {
	matcher *urlmatcher.CombinedMatcher
	domains *filterutil.Domains
	out     io.Writer
	opts    *Options
}

// checkAll checks the queries read from r line by line.  Empty lines are
// skipped.
func (c *checker) checkAll(r io.Reader) (err error) {
	sc := bufio.NewScanner(r)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		q, qErr := parseQuery(line, c.opts.Type, c.opts.Document)
		if qErr != nil {
			return fmt.Errorf("line %d: %w", lineNum, qErr)
		}

		err = c.check(q)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return sc.Err()
}

// check checks a single query and prints the result.
func (c *checker) check(q query) (err error) {
	t, ok := contenttype.FromName(strings.ToLower(q.typeName))
	if !ok {
		return fmt.Errorf("%w: unknown type %q", errBadQuery, q.typeName)
	}

	if c.opts.Search {
		res := c.matcher.Search(q.url, t, q.docDomain, c.opts.Sitekey, c.opts.SpecificOnly, urlmatcher.SearchAll)
		for _, f := range res.Blocking {
			_, err = fmt.Fprintf(c.out, "%s\tblocking\t%s\n", q.url, f.Text())
			if err != nil {
				return fmt.Errorf("writing result: %w", err)
			}
		}

		for _, f := range res.Whitelist {
			_, err = fmt.Fprintf(c.out, "%s\twhitelist\t%s\n", q.url, f.Text())
			if err != nil {
				return fmt.Errorf("writing result: %w", err)
			}
		}

		return nil
	}

	verdict := "no match"
	f := c.matcher.Match(q.url, t, q.docDomain, c.opts.Sitekey, c.opts.SpecificOnly)
	switch {
	case f == nil:
		// Go on.
	case f.Kind() == rules.KindWhitelist:
		verdict = "allowed by " + f.Text()
	default:
		verdict = "blocked by " + f.Text()
	}

	party := "first-party"
	doc := filterutil.NormalizeHostname(strings.ToLower(q.docDomain))
	if doc != "" && c.domains.IsThirdParty(hostnameOf(q.url), doc) {
		party = "third-party"
	}

	_, err = fmt.Fprintf(c.out, "%s\t%s\t%s\t%s\n", q.url, t, party, verdict)
	if err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	return nil
}

// hostnameOf returns the normalized lower-case hostname of the URL.
func hostnameOf(url string) (host string) {
	return filterutil.NormalizeHostname(ufnet.ExtractHostname(strings.ToLower(url)))
}
