package urlmatcher_test

import (
	"os"
	"runtime"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/rules"
	"github.com/AdguardTeam/urlmatcher/suffixlist"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/require"
)

// testDomains is the domain helper shared by the tests.
var testDomains = filterutil.NewDomains(suffixlist.NewMap(map[string]int{
	"com": 1,
	"net": 1,
	"org": 1,
}))

// newTestConfig returns a configuration for the matchers under test.
func newTestConfig() (c *urlmatcher.Config) {
	return &urlmatcher.Config{
		Logger:  slogutil.NewDiscardLogger(),
		Domains: testDomains,
	}
}

// newTestMatcher returns a matcher with the filters parsed from texts.
func newTestMatcher(tb testing.TB, texts ...string) (m *urlmatcher.Matcher) {
	tb.Helper()

	m = urlmatcher.NewMatcher(newTestConfig())
	for _, text := range texts {
		m.Add(newTestFilter(tb, text))
	}

	return m
}

// newTestFilter parses a filter and fails the test if that isn't possible.
func newTestFilter(tb testing.TB, text string) (f *rules.NetworkRule) {
	tb.Helper()

	f, err := rules.NewRule(text)
	require.NoError(tb, err)
	require.NotNil(tb, f)

	return f
}

// filterText returns the text of f or an empty string if f is nil.
func filterText(f urlmatcher.Filter) (text string) {
	if f == nil {
		return ""
	}

	return f.Text()
}

// alloc returns the heap and RSS memory sizes, in kibibytes.
func alloc(t *testing.T) (heap, rss uint64) {
	p, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)

	mi, err := p.MemoryInfo()
	require.NoError(t, err)

	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)

	return ms.Alloc / 1024, mi.RSS / 1024
}
