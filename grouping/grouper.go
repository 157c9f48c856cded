// Package grouping partitions a batch of parsed documents into one group
// per collection date, deduplicates results within each group and attaches
// verification evidence and content fingerprints. One DateGroup becomes
// one persisted clinical record.
package grouping

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhealth/labrecords-api/dedup"
	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/fingerprint"
	"github.com/kestrelhealth/labrecords-api/verification"
)

// Observer receives structured diagnostics from grouping without making
// the computation itself side-effecting. A nil observer disables them.
type Observer func(msg string, args ...any)

// Grouper folds complete upload batches into date groups. It holds no
// mutable state and is safe for concurrent use.
type Grouper struct {
	scorer *verification.Scorer
	info   Observer
	warn   Observer
}

// NewGrouper creates a grouper scoring against the given scorer.
func NewGrouper(scorer *verification.Scorer) *Grouper {
	return &Grouper{scorer: scorer}
}

// WithObserver returns a copy of the grouper that emits diagnostics.
// Neutral batch summaries go to info; unresolved conflicts go to warn.
// Either hook may be nil.
func (g *Grouper) WithObserver(info, warn Observer) *Grouper {
	return &Grouper{scorer: g.scorer, info: info, warn: warn}
}

func (g *Grouper) observe(msg string, args ...any) {
	if g.info != nil {
		g.info(msg, args...)
	}
}

func (g *Grouper) observeWarn(msg string, args ...any) {
	if g.warn != nil {
		g.warn(msg, args...)
	}
}

// Group partitions documents by collection date, ascending, with all
// undated documents collected into a single trailing group. The grouping
// is a deterministic fold over the complete batch; there is no incremental
// mode, and a single-date batch takes the same path as a multi-date one.
func (g *Grouper) Group(documents []entities.RawExtraction, profile *entities.UserProfile) []entities.DateGroup {
	if len(documents) == 0 {
		return []entities.DateGroup{}
	}

	buckets := make(map[string][]entities.RawExtraction)
	var keys []string
	for _, doc := range documents {
		key := dateKey(doc.CollectionDate)
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], doc)
	}

	// Dated groups ascending; the unknown-date group sorts last.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "" {
			return false
		}
		if keys[j] == "" {
			return true
		}
		return keys[i] < keys[j]
	})

	groups := make([]entities.DateGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, g.buildGroup(buckets[key], profile))
	}

	g.observe("grouped documents",
		"documents", len(documents),
		"groups", len(groups))

	return groups
}

func (g *Grouper) buildGroup(members []entities.RawExtraction, profile *entities.UserProfile) entities.DateGroup {
	group := entities.DateGroup{
		Date: members[0].CollectionDate,
	}

	var outcomes []entities.TestOutcome
	var notes []string
	for _, doc := range members {
		outcomes = append(outcomes, doc.Outcomes...)
		if strings.TrimSpace(doc.Notes) != "" {
			notes = append(notes, doc.Notes)
		}
		if doc.RawText != "" {
			fp := fingerprint.Fingerprint(doc.RawText)
			group.ContentHashes = append(group.ContentHashes, fp.ExactHash)
			group.ContentSimhashes = append(group.ContentSimhashes, fp.SimHash)
		}
	}

	deduplicated := dedup.Deduplicate(outcomes)
	group.Tests = deduplicated.Tests
	group.Conflicts = deduplicated.Conflicts
	group.Notes = strings.Join(notes, "\n\n")

	statuses := make([]entities.TestStatus, len(group.Tests))
	for i, test := range group.Tests {
		statuses[i] = test.Status
	}
	group.OverallStatus = dedup.FoldStatuses(statuses)
	group.TestType = summarizeTestType(members, group.Tests)

	g.attachVerification(&group, members, profile)

	if len(group.Conflicts) > 0 {
		g.observeWarn("unresolved result conflicts in group",
			"date", dateKey(group.Date),
			"conflicts", len(group.Conflicts))
	}

	return group
}

// attachVerification scores every member document. The group is verified
// when any member's evidence satisfies verification; the attached result
// is the worst case (lowest score) so callers never over-trust a group. A
// future-dated member poisons the whole group: its result is attached and
// the group stays unverified.
func (g *Grouper) attachVerification(group *entities.DateGroup, members []entities.RawExtraction, profile *entities.UserProfile) {
	anyVerified := false
	var futureResult *entities.VerificationResult
	var worst *entities.VerificationResult

	for i := range members {
		result := g.scorer.ScoreDocument(&members[i], profile)
		if result.HasFutureDate && futureResult == nil {
			r := result
			futureResult = &r
		}
		if result.IsVerified {
			anyVerified = true
		}
		if worst == nil || result.Score < worst.Score {
			r := result
			worst = &r
		}
	}

	if futureResult != nil {
		group.Verification = futureResult
		group.IsVerified = false
		return
	}

	group.Verification = worst
	group.IsVerified = anyVerified
}

// routinePanels maps a panel label to the normalized test-name fragments
// it covers. A group whose tests all fall under one panel and hit at least
// three of its members gets the panel label.
var routinePanels = []struct {
	label     string
	fragments []string
}{
	{
		label:     "Routine STI Panel",
		fragments: []string{"hiv", "chlamydia", "gonorrhea", "gonorrhoea", "syphilis", "rpr", "hepatitis"},
	},
}

const minPanelCoverage = 3

func summarizeTestType(members []entities.RawExtraction, tests []entities.TestOutcome) string {
	if len(tests) == 0 {
		return "Lab Results"
	}

	for _, panel := range routinePanels {
		covered := make(map[string]bool)
		allCovered := true
		for _, test := range tests {
			name := dedup.NormalizeTestName(test.Name)
			matched := ""
			for _, fragment := range panel.fragments {
				if strings.Contains(name, fragment) {
					matched = fragment
					break
				}
			}
			if matched == "" {
				allCovered = false
				break
			}
			covered[matched] = true
		}
		if allCovered && len(covered) >= minPanelCoverage {
			return panel.label
		}
	}

	if len(tests) == 1 {
		return tests[0].Name
	}

	if label := sharedPanelLabel(members); label != "" {
		return label
	}

	return fmt.Sprintf("Combined Panel (%d tests)", len(tests))
}

// sharedPanelLabel returns the members' panel label when every labeled
// member agrees on one.
func sharedPanelLabel(members []entities.RawExtraction) string {
	label := ""
	for _, doc := range members {
		if doc.PanelLabel == "" {
			continue
		}
		if label == "" {
			label = doc.PanelLabel
			continue
		}
		if doc.PanelLabel != label {
			return ""
		}
	}
	return label
}

func dateKey(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.Format("2006-01-02")
}

// BuildRecord flattens a DateGroup into its persistence payload, keeping
// the first content hash/simhash pair for later duplicate lookups.
func BuildRecord(group entities.DateGroup) entities.LabRecord {
	record := entities.LabRecord{
		ID:            uuid.NewString(),
		Date:          group.Date,
		Tests:         group.Tests,
		TestType:      group.TestType,
		OverallStatus: group.OverallStatus,
		Notes:         group.Notes,
		IsVerified:    group.IsVerified,
		CreatedAt:     time.Now().UTC(),
	}

	if group.Verification != nil {
		record.VerificationScore = group.Verification.Score
		record.VerificationLevel = group.Verification.Level
	} else {
		record.VerificationLevel = entities.LevelNone
	}

	if len(group.ContentHashes) > 0 {
		record.ContentHash = group.ContentHashes[0]
	}
	if len(group.ContentSimhashes) > 0 {
		record.ContentSimhash = group.ContentSimhashes[0]
	}

	return record
}
