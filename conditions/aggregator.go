package conditions

import (
	"time"

	"github.com/kestrelhealth/labrecords-api/dedup"
	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// Aggregator collapses a user's full result history into one current
// status per test name and separates routine screening results from
// known, managed conditions.
type Aggregator struct {
	matcher *Matcher
}

// NewAggregator creates an aggregator over the built-in condition table.
func NewAggregator() *Aggregator {
	return &Aggregator{matcher: NewMatcher()}
}

// Aggregate keeps only the chronologically most recent outcome per
// distinct test name across all records, partitions results into known
// (declared) and routine, and computes the overall status from the
// routine subset only. Undated records count as older than any dated
// record; among equal dates the later record in the input wins.
func (a *Aggregator) Aggregate(history []entities.LabRecord, declared []entities.KnownCondition) entities.StatusSummary {
	summary := entities.StatusSummary{
		Routine: []entities.StatusEntry{},
		Known:   []entities.StatusEntry{},
	}

	type latest struct {
		entry entities.StatusEntry
		order int
	}

	var names []string
	current := make(map[string]latest)

	for i, record := range history {
		for _, test := range record.Tests {
			key := dedup.NormalizeTestName(test.Name)
			if key == "" {
				continue
			}

			entry := entities.StatusEntry{
				Name:   test.Name,
				Result: test.Result,
				Status: test.Status,
				Date:   record.Date,
			}

			existing, seen := current[key]
			if !seen {
				names = append(names, key)
				current[key] = latest{entry: entry, order: i}
				continue
			}
			if newerOrSame(entry.Date, i, existing.entry.Date, existing.order) {
				current[key] = latest{entry: entry, order: i}
			}
		}
	}

	var routineStatuses []entities.TestStatus
	for _, key := range names {
		entry := current[key].entry
		if a.matcher.MatchesAny(entry.Name, declared) {
			summary.Known = append(summary.Known, entry)
			continue
		}
		summary.Routine = append(summary.Routine, entry)
		routineStatuses = append(routineStatuses, entry.Status)
	}

	summary.Overall = dedup.FoldStatuses(routineStatuses)
	return summary
}

// newerOrSame decides whether a candidate outcome supersedes the held one.
func newerOrSame(date *time.Time, order int, heldDate *time.Time, heldOrder int) bool {
	switch {
	case date == nil && heldDate == nil:
		return order >= heldOrder
	case date == nil:
		return false
	case heldDate == nil:
		return true
	case date.Equal(*heldDate):
		return order >= heldOrder
	default:
		return date.After(*heldDate)
	}
}
