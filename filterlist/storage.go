// Package filterlist contains the storage of filter subscriptions.  It keeps
// the rules of every list and passes only the changes between the versions of
// a list to the matching engine.
package filterlist

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/rules"
)

// Engine is the consumer of the filters of the lists.
// [*urlmatcher.CombinedMatcher] implements it.
type Engine interface {
	// Add adds f to the engine.
	Add(f urlmatcher.Filter)

	// Remove removes f from the engine.
	Remove(f urlmatcher.Filter)
}

// type check
var _ Engine = (*urlmatcher.CombinedMatcher)(nil)

// Config is the configuration structure for [Storage].
type Config struct {
	// Logger is used to log the rules that couldn't be parsed.  It must not
	// be nil.
	Logger *slog.Logger

	// Engine receives the filters.  It must not be nil and must not be
	// modified by anything but the storage.
	Engine Engine
}

// ruleEntry is a filter shared by one or more lists.
type ruleEntry struct {
	filter *rules.NetworkRule

	// refs is the number of lists that contain the rule.
	refs int
}

// Storage keeps filter lists by their identifiers.  The same rule in several
// lists reaches the engine once.
//
// Storage is safe for concurrent use.
type Storage struct {
	// mu protects the fields below and the engine.
	mu *sync.Mutex

	logger *slog.Logger
	engine Engine

	// lists maps list identifiers to the texts of their rules.
	lists map[int]map[string]struct{}

	// rules maps rule texts to the parsed rules.
	rules map[string]*ruleEntry
}

// New returns a new properly initialized *Storage.  c must not be nil.
func New(c *Config) (s *Storage) {
	return &Storage{
		mu:     &sync.Mutex{},
		logger: c.Logger,
		engine: c.Engine,
		lists:  map[int]map[string]struct{}{},
		rules:  map[string]*ruleEntry{},
	}
}

// SetList replaces the contents of the list with the given id with the rules
// in text.  Empty lines, comments, and element hiding rules are skipped.
// Invalid rules are skipped as well, but err contains all of them.  added and
// removed are the numbers of the rules that appeared in and disappeared from
// the list.  If text can't be read to the end, the list is left unchanged.
func (s *Storage) SetList(id int, text string) (added, removed int, err error) {
	texts, errs, err := s.parse(id, text)
	if err != nil {
		return 0, 0, errors.Annotate(err, "list %d: %w", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.lists[id]
	for ruleText := range prev {
		if _, ok := texts[ruleText]; !ok {
			s.release(ruleText)
			removed++
		}
	}

	for ruleText, f := range texts {
		if _, ok := prev[ruleText]; ok {
			continue
		}

		s.acquire(ruleText, f)
		added++
	}

	s.lists[id] = make(map[string]struct{}, len(texts))
	for ruleText := range texts {
		s.lists[id][ruleText] = struct{}{}
	}

	s.logger.Debug("list updated", "list_id", id, "added", added, "removed", removed)

	return added, removed, errors.Annotate(errors.Join(errs...), "list %d: %w", id)
}

// parse parses the rules in text.  errs are the errors of the invalid rules,
// err is non-nil if text couldn't be scanned.
func (s *Storage) parse(
	id int,
	text string,
) (texts map[string]*rules.NetworkRule, errs []error, err error) {
	texts = map[string]*rules.NetworkRule{}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(nil, bufio.MaxScanTokenSize*16)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if _, ok := texts[line]; ok {
			continue
		}

		f, err := rules.NewRule(line)
		switch {
		case errors.Is(err, rules.ErrUnsupportedRule):
			// Element hiding and other rules the matchers don't handle.
			continue
		case err != nil:
			s.logger.Debug("skipping rule", "list_id", id, "line", lineNum, slogutil.KeyError, err)
			errs = append(errs, fmt.Errorf("line %d: %w", lineNum, err))

			continue
		case f == nil:
			continue
		}

		texts[line] = f
	}

	if err = sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanning: %w", err)
	}

	return texts, errs, nil
}

// acquire adds a reference to the rule, adding it to the engine if it's new.
// s.mu must be locked.
func (s *Storage) acquire(ruleText string, f *rules.NetworkRule) {
	e, ok := s.rules[ruleText]
	if !ok {
		e = &ruleEntry{filter: f}
		s.rules[ruleText] = e
		s.engine.Add(f)
	}

	e.refs++
}

// release removes a reference to the rule, removing it from the engine if it
// was the last one.  s.mu must be locked.
func (s *Storage) release(ruleText string) {
	e, ok := s.rules[ruleText]
	if !ok {
		return
	}

	e.refs--
	if e.refs <= 0 {
		delete(s.rules, ruleText)
		s.engine.Remove(e.filter)
	}
}

// RemoveList removes the list with the given id and returns the number of
// rules it had.
func (s *Storage) RemoveList(id int) (removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ruleText := range s.lists[id] {
		s.release(ruleText)
		removed++
	}

	delete(s.lists, id)

	return removed
}

// Lists returns the sorted identifiers of the stored lists.
func (s *Storage) Lists() (ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.lists))
}

// RulesCount returns the number of distinct rules in all lists.
func (s *Storage) RulesCount() (n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rules)
}

// ReadList reads the whole list from r.
func ReadList(r io.Reader) (text string, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading list: %w", err)
	}

	return string(b), nil
}
