// Package suffixlist contains public suffix tables used to compute base
// domains.  A table is loaded once and is read-only afterwards, so it can be
// shared between any number of matchers.
package suffixlist

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/net/publicsuffix"
)

// ErrNegativeOffset is returned when a dataset contains a negative offset.
const ErrNegativeOffset errors.Error = "negative offset"

// Table is a public suffix table.
type Table interface {
	// Offset returns the number of labels that are added to suffix to get a
	// registrable domain.  ok is false if suffix is not a public suffix.
	//
	// The usual offset is 1, "co.uk" has 1 so that the base domain of
	// "www.example.co.uk" is "example.co.uk".  Wildcard rules, like "*.ck",
	// give 2 for "ck", and exception rules, like "!www.ck", give 0 for
	// "www.ck".
	Offset(suffix string) (offset int, ok bool)
}

// type check
var _ Table = (*Map)(nil)

// Map is a [Table] built from a flat suffix-to-offset dataset.
type Map struct {
	offsets map[string]int
}

// NewMap returns a table with the offsets from m.  m is copied.
func NewMap(m map[string]int) (t *Map) {
	return &Map{
		offsets: maps.Clone(m),
	}
}

// Parse reads a JSON object mapping suffixes to offsets from r.
func Parse(r io.Reader) (t *Map, err error) {
	offsets := map[string]int{}
	err = json.NewDecoder(r).Decode(&offsets)
	if err != nil {
		return nil, fmt.Errorf("decoding suffixes: %w", err)
	}

	for suffix, off := range offsets {
		if off < 0 {
			return nil, fmt.Errorf("suffix %q: %w: %d", suffix, ErrNegativeOffset, off)
		}
	}

	return &Map{
		offsets: offsets,
	}, nil
}

// Load reads the JSON dataset from the file at path.
func Load(path string) (t *Map, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening suffix list: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return Parse(f)
}

// Offset implements the [Table] interface for *Map.
func (t *Map) Offset(suffix string) (offset int, ok bool) {
	offset, ok = t.offsets[suffix]

	return offset, ok
}

// Len returns the number of suffixes in the table.
func (t *Map) Len() (n int) {
	return len(t.offsets)
}

// type check
var _ Table = System{}

// System is a [Table] backed by the list compiled into
// golang.org/x/net/publicsuffix.  A name that is its own public suffix has
// the offset 1.  Wildcard and exception rules are resolved by the library, so
// they never need offsets other than 1.
type System struct{}

// Offset implements the [Table] interface for System.
func (System) Offset(suffix string) (offset int, ok bool) {
	if suffix == "" {
		return 0, false
	}

	ps, _ := publicsuffix.PublicSuffix(suffix)
	if ps != suffix {
		return 0, false
	}

	return 1, true
}
