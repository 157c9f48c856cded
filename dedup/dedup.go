// Package dedup merges repeated test-name entries into one authoritative
// outcome per test name and surfaces unresolved contradictions as explicit
// conflicts. The clinical precedence used for conflict resolution lives
// here so every component folds statuses by the identical rule.
package dedup

import (
	"strings"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// statusRanks orders statuses by clinical significance. Pending and
// inconclusive deliberately share a rank: neither outranks the other.
var statusRanks = map[entities.TestStatus]int{
	entities.StatusNegative:     0,
	entities.StatusPending:      1,
	entities.StatusInconclusive: 1,
	entities.StatusPositive:     2,
}

// StatusRank returns the clinical precedence of a status. Unknown statuses
// rank below negative so malformed input never wins a conflict.
func StatusRank(s entities.TestStatus) int {
	if rank, ok := statusRanks[s]; ok {
		return rank
	}
	return -1
}

// MoreSignificant reports whether a outranks b clinically.
func MoreSignificant(a, b entities.TestStatus) bool {
	return StatusRank(a) > StatusRank(b)
}

// FoldStatuses collapses statuses into one overall status: positive if any
// is positive, else pending if any is pending or inconclusive, else
// negative. An empty input folds to negative.
func FoldStatuses(statuses []entities.TestStatus) entities.TestStatus {
	highest := -1
	for _, s := range statuses {
		if rank := StatusRank(s); rank > highest {
			highest = rank
		}
	}

	switch highest {
	case 2:
		return entities.StatusPositive
	case 1:
		return entities.StatusPending
	default:
		return entities.StatusNegative
	}
}

// NormalizeTestName produces the merge key for a test name: lowercase with
// whitespace runs collapsed.
func NormalizeTestName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Result is the output of Deduplicate: one outcome per normalized name and
// a conflict record for every name with contradictory statuses.
type Result struct {
	Tests     []entities.TestOutcome  `json:"tests"`
	Conflicts []entities.TestConflict `json:"conflicts"`
}

// Deduplicate groups outcomes by normalized test name. Names with a single
// distinct status pass through unchanged (first occurrence wins for result
// text); names with multiple distinct statuses emit a conflict whose
// suggested resolution is the most clinically significant occurrence.
// Output order follows first appearance in the input, so identical input
// always yields identical output.
func Deduplicate(outcomes []entities.TestOutcome) Result {
	result := Result{Tests: []entities.TestOutcome{}, Conflicts: []entities.TestConflict{}}
	if len(outcomes) == 0 {
		return result
	}

	order := make([]string, 0, len(outcomes))
	groups := make(map[string][]entities.TestOutcome, len(outcomes))

	for _, outcome := range outcomes {
		key := NormalizeTestName(outcome.Name)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], outcome)
	}

	for _, key := range order {
		occurrences := groups[key]

		if !hasDistinctStatuses(occurrences) {
			result.Tests = append(result.Tests, occurrences[0])
			continue
		}

		suggested := occurrences[0]
		for _, occurrence := range occurrences[1:] {
			if MoreSignificant(occurrence.Status, suggested.Status) {
				suggested = occurrence
			}
		}

		result.Tests = append(result.Tests, suggested)
		result.Conflicts = append(result.Conflicts, entities.TestConflict{
			TestName:    suggested.Name,
			Occurrences: occurrences,
			Suggested:   suggested,
		})
	}

	return result
}

func hasDistinctStatuses(occurrences []entities.TestOutcome) bool {
	for _, occurrence := range occurrences[1:] {
		if occurrence.Status != occurrences[0].Status {
			return true
		}
	}
	return false
}
