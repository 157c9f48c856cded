// Package conditions matches freeform test names against a user's declared
// chronic conditions and aggregates result history into one current status
// per test. The condition vocabulary is closed and small, so matching is a
// hand-curated rule table per condition family rather than a generalized
// fuzzy matcher.
package conditions

import (
	"strings"

	"github.com/kestrelhealth/labrecords-api/dedup"
	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// family is one supported condition family with its known synonyms. Alias
// order matters within the table: more specific families (HSV-1 before any
// generic herpes wording) are listed first so they resolve before looser
// ones.
type family struct {
	canonical string
	aliases   []string
}

var families = []family{
	{
		canonical: "hsv-1",
		aliases: []string{
			"hsv-1", "hsv 1", "hsv1", "hsv type 1",
			"herpes simplex virus 1", "herpes simplex virus type 1",
			"herpes simplex 1", "herpes type 1", "herpes 1", "oral herpes",
		},
	},
	{
		canonical: "hsv-2",
		aliases: []string{
			"hsv-2", "hsv 2", "hsv2", "hsv type 2",
			"herpes simplex virus 2", "herpes simplex virus type 2",
			"herpes simplex 2", "herpes type 2", "herpes 2", "genital herpes",
		},
	},
	{
		canonical: "hiv",
		aliases: []string{
			"hiv", "hiv-1", "hiv-2", "hiv 1/2", "hiv ag/ab",
			"human immunodeficiency virus",
		},
	},
	{
		canonical: "hepatitis b",
		aliases: []string{
			"hepatitis b", "hep b", "hepb", "hbv", "hbsag", "hbs ag",
		},
	},
	{
		canonical: "hepatitis c",
		aliases: []string{
			"hepatitis c", "hep c", "hepc", "hcv",
		},
	},
	{
		canonical: "hpv",
		aliases: []string{
			"hpv", "human papillomavirus", "human papilloma virus",
		},
	},
	{
		canonical: "chlamydia",
		aliases: []string{
			"chlamydia", "chlamydia trachomatis", "ct naat",
		},
	},
	{
		canonical: "gonorrhea",
		aliases: []string{
			"gonorrhea", "gonorrhoea", "neisseria gonorrhoeae", "gc naat",
		},
	},
	{
		canonical: "syphilis",
		aliases: []string{
			"syphilis", "treponema pallidum", "rpr", "vdrl",
		},
	},
	{
		canonical: "trichomoniasis",
		aliases: []string{
			"trichomoniasis", "trichomonas", "trichomonas vaginalis", "trich",
		},
	},
}

// Matcher performs alias-aware matching between test names and declared
// conditions. It is stateless and safe for concurrent use.
type Matcher struct{}

// NewMatcher returns a condition matcher over the built-in family table.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// resolveFamily maps a freeform name to its condition family, or "" when
// no family claims it. Aliases match as whole substrings of the normalized
// name, checked in table order so specific families win.
func resolveFamily(name string) string {
	normalized := dedup.NormalizeTestName(name)
	if normalized == "" {
		return ""
	}

	for _, f := range families {
		for _, alias := range f.aliases {
			if containsAlias(normalized, alias) {
				return f.canonical
			}
		}
	}
	return ""
}

// containsAlias reports whether alias occurs in name on word boundaries,
// treating hyphens and slashes as separators. A plain substring test would
// let "hiv" match inside unrelated words.
func containsAlias(name, alias string) bool {
	idx := 0
	for {
		pos := strings.Index(name[idx:], alias)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(alias)
		if boundaryBefore(name, start) && boundaryAfter(name, end) {
			return true
		}
		idx = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || isSeparator(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i == len(s) || isSeparator(s[i])
}

func isSeparator(c byte) bool {
	switch c {
	case ' ', '-', '/', '(', ')', ',', ':', '.':
		return true
	}
	return false
}

// Matches reports whether a test name refers to the same condition family
// as a declared condition. When neither side resolves to a known family,
// it falls back to case-insensitive substring containment in either
// direction so unusual declared conditions still match their own results.
func (m *Matcher) Matches(testName, declaredCondition string) bool {
	testFamily := resolveFamily(testName)
	conditionFamily := resolveFamily(declaredCondition)

	if testFamily != "" || conditionFamily != "" {
		return testFamily != "" && testFamily == conditionFamily
	}

	test := dedup.NormalizeTestName(testName)
	condition := dedup.NormalizeTestName(declaredCondition)
	if test == "" || condition == "" {
		return false
	}
	return strings.Contains(test, condition) || strings.Contains(condition, test)
}

// MatchesAny reports whether a test name matches any declared condition.
func (m *Matcher) MatchesAny(testName string, declared []entities.KnownCondition) bool {
	for _, condition := range declared {
		if m.Matches(testName, condition.ConditionName) {
			return true
		}
	}
	return false
}
