package rules_test

import (
	"github.com/AdguardTeam/urlmatcher/filterutil"
	"github.com/AdguardTeam/urlmatcher/suffixlist"
)

// testDomains is the domain helper shared by the tests.
var testDomains = filterutil.NewDomains(suffixlist.NewMap(map[string]int{
	"com":   1,
	"org":   1,
	"uk":    1,
	"co.uk": 1,
}))
