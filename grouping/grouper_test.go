package grouping

import (
	"strings"
	"testing"
	"time"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/labdirectory"
	"github.com/kestrelhealth/labrecords-api/verification"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestGrouper(t *testing.T) *Grouper {
	t.Helper()
	directory, err := labdirectory.Load()
	if err != nil {
		t.Fatalf("Expected directory to load, got %v", err)
	}
	scorer := verification.NewScorerWithClock(directory, func() time.Time { return testNow })
	return NewGrouper(scorer)
}

func day(yearDay int) *time.Time {
	d := time.Date(2024, 3, yearDay, 0, 0, 0, 0, time.UTC)
	return &d
}

func outcome(name string, status entities.TestStatus) entities.TestOutcome {
	return entities.TestOutcome{Name: name, Result: string(status), Status: status}
}

func TestGroupEmptyBatch(t *testing.T) {
	grouper := newTestGrouper(t)

	groups := grouper.Group(nil, nil)
	if len(groups) != 0 {
		t.Errorf("Expected no groups for empty batch, got %d", len(groups))
	}
}

func TestGroupSameDateYieldsOneGroup(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{
		{CollectionDate: day(1), Outcomes: []entities.TestOutcome{outcome("HIV", entities.StatusNegative)}},
		{CollectionDate: day(1), Outcomes: []entities.TestOutcome{outcome("Chlamydia", entities.StatusNegative)}},
	}

	groups := grouper.Group(documents, nil)
	if len(groups) != 1 {
		t.Fatalf("Expected one group for same-date documents, got %d", len(groups))
	}
	if len(groups[0].Tests) != 2 {
		t.Errorf("Expected 2 tests in the group, got %d", len(groups[0].Tests))
	}
}

func TestGroupAllUndatedYieldsOneGroup(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{
		{Outcomes: []entities.TestOutcome{outcome("HIV", entities.StatusNegative)}},
		{Outcomes: []entities.TestOutcome{outcome("Syphilis", entities.StatusNegative)}},
	}

	groups := grouper.Group(documents, nil)
	if len(groups) != 1 {
		t.Fatalf("Expected one group for undated documents, got %d", len(groups))
	}
	if groups[0].Date != nil {
		t.Errorf("Expected nil date for the unknown group, got %v", groups[0].Date)
	}
}

func TestGroupOrderingDatedAscendingUnknownLast(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{
		{CollectionDate: day(20), Outcomes: []entities.TestOutcome{outcome("HIV", entities.StatusNegative)}},
		{Outcomes: []entities.TestOutcome{outcome("HPV", entities.StatusNegative)}},
		{CollectionDate: day(5), Outcomes: []entities.TestOutcome{outcome("Syphilis", entities.StatusNegative)}},
	}

	groups := grouper.Group(documents, nil)
	if len(groups) != 3 {
		t.Fatalf("Expected three groups, got %d", len(groups))
	}
	if groups[0].Date == nil || groups[0].Date.Day() != 5 {
		t.Errorf("Expected earliest date first, got %v", groups[0].Date)
	}
	if groups[1].Date == nil || groups[1].Date.Day() != 20 {
		t.Errorf("Expected later date second, got %v", groups[1].Date)
	}
	if groups[2].Date != nil {
		t.Errorf("Expected unknown-date group last, got %v", groups[2].Date)
	}
}

func TestGroupConflictScenario(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{
		{
			CollectionDate: day(1),
			Outcomes:       []entities.TestOutcome{outcome("HIV", entities.StatusNegative)},
		},
		{
			CollectionDate: day(1),
			Outcomes: []entities.TestOutcome{
				outcome("HIV", entities.StatusPositive),
				outcome("Chlamydia", entities.StatusNegative),
			},
		},
	}

	groups := grouper.Group(documents, nil)
	if len(groups) != 1 {
		t.Fatalf("Expected one group, got %d", len(groups))
	}

	group := groups[0]
	if len(group.Tests) != 2 {
		t.Errorf("Expected exactly 2 tests, got %d", len(group.Tests))
	}
	if len(group.Conflicts) != 1 {
		t.Fatalf("Expected one conflict, got %d", len(group.Conflicts))
	}
	if group.Conflicts[0].Suggested.Status != entities.StatusPositive {
		t.Errorf("Expected suggested positive for HIV, got %s", group.Conflicts[0].Suggested.Status)
	}
	if group.OverallStatus != entities.StatusPositive {
		t.Errorf("Expected positive overall status, got %s", group.OverallStatus)
	}
}

func TestObserverRoutesConflictsToWarn(t *testing.T) {
	var infoMsgs, warnMsgs []string
	grouper := newTestGrouper(t).WithObserver(
		func(msg string, args ...any) { infoMsgs = append(infoMsgs, msg) },
		func(msg string, args ...any) { warnMsgs = append(warnMsgs, msg) },
	)

	clean := []entities.RawExtraction{
		{CollectionDate: day(1), Outcomes: []entities.TestOutcome{outcome("HIV", entities.StatusNegative)}},
	}
	grouper.Group(clean, nil)

	if len(infoMsgs) != 1 || infoMsgs[0] != "grouped documents" {
		t.Errorf("Expected one info summary for a clean batch, got %v", infoMsgs)
	}
	if len(warnMsgs) != 0 {
		t.Errorf("Expected no warnings for a clean batch, got %v", warnMsgs)
	}

	conflicting := []entities.RawExtraction{
		{CollectionDate: day(1), Outcomes: []entities.TestOutcome{outcome("HIV", entities.StatusNegative)}},
		{CollectionDate: day(1), Outcomes: []entities.TestOutcome{outcome("HIV", entities.StatusPositive)}},
	}
	warnMsgs = nil
	grouper.Group(conflicting, nil)

	if len(warnMsgs) != 1 || warnMsgs[0] != "unresolved result conflicts in group" {
		t.Errorf("Expected the conflict warning, got %v", warnMsgs)
	}
}

func TestGroupNotesJoinedWithBlankLine(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{
		{CollectionDate: day(1), Notes: "Fasting sample."},
		{CollectionDate: day(1), Notes: "Repeat in 3 months."},
		{CollectionDate: day(1), Notes: "   "},
	}

	groups := grouper.Group(documents, nil)
	expected := "Fasting sample.\n\nRepeat in 3 months."
	if groups[0].Notes != expected {
		t.Errorf("Expected notes %q, got %q", expected, groups[0].Notes)
	}
}

func TestGroupVerification(t *testing.T) {
	grouper := newTestGrouper(t)

	verified := &entities.VerificationEvidence{LabName: "LifeLabs", HasHealthCard: true}
	documents := []entities.RawExtraction{
		{CollectionDate: day(1), Evidence: verified},
		{CollectionDate: day(1)}, // no evidence at all
	}

	groups := grouper.Group(documents, nil)
	group := groups[0]

	if !group.IsVerified {
		t.Error("Expected group verified when one member's evidence satisfies verification")
	}
	if group.Verification == nil {
		t.Fatal("Expected attached verification result")
	}
	if group.Verification.Score != 0 {
		t.Errorf("Expected worst-case (lowest) score attached, got %d", group.Verification.Score)
	}
}

func TestGroupFutureDatePoisonsGroup(t *testing.T) {
	grouper := newTestGrouper(t)

	future := testNow.AddDate(0, 0, 3)
	documents := []entities.RawExtraction{
		{
			CollectionDate: &future,
			Evidence:       &entities.VerificationEvidence{LabName: "LifeLabs", HasHealthCard: true},
		},
	}

	groups := grouper.Group(documents, nil)
	group := groups[0]

	if group.IsVerified {
		t.Error("Expected unverified group for future-dated document")
	}
	if group.Verification == nil || !group.Verification.HasFutureDate {
		t.Error("Expected attached result to carry the future-date flag")
	}
}

func TestGroupCarriesFingerprints(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{
		{CollectionDate: day(1), RawText: "HIV antibody screen negative LifeLabs Toronto"},
		{CollectionDate: day(1), RawText: "Chlamydia trachomatis not detected LifeLabs Toronto"},
		{CollectionDate: day(1)}, // no raw text, no fingerprint
	}

	groups := grouper.Group(documents, nil)
	group := groups[0]

	if len(group.ContentHashes) != 2 || len(group.ContentSimhashes) != 2 {
		t.Fatalf("Expected 2 fingerprint pairs, got %d/%d",
			len(group.ContentHashes), len(group.ContentSimhashes))
	}
	if group.ContentHashes[0] == group.ContentHashes[1] {
		t.Error("Expected distinct exact hashes for distinct texts")
	}
}

func TestSummarizeTestType(t *testing.T) {
	grouper := newTestGrouper(t)

	panel := []entities.RawExtraction{{
		CollectionDate: day(1),
		Outcomes: []entities.TestOutcome{
			outcome("HIV Antibody Screen", entities.StatusNegative),
			outcome("Chlamydia Trachomatis NAAT", entities.StatusNegative),
			outcome("Gonorrhea NAAT", entities.StatusNegative),
			outcome("Syphilis RPR", entities.StatusNegative),
		},
	}}
	groups := grouper.Group(panel, nil)
	if groups[0].TestType != "Routine STI Panel" {
		t.Errorf("Expected routine panel label, got %q", groups[0].TestType)
	}

	single := []entities.RawExtraction{{
		CollectionDate: day(2),
		Outcomes:       []entities.TestOutcome{outcome("HIV", entities.StatusNegative)},
	}}
	groups = grouper.Group(single, nil)
	if groups[0].TestType != "HIV" {
		t.Errorf("Expected single test name, got %q", groups[0].TestType)
	}

	labeled := []entities.RawExtraction{{
		CollectionDate: day(3),
		PanelLabel:     "Wellness Panel",
		Outcomes: []entities.TestOutcome{
			outcome("Vitamin D", entities.StatusNegative),
			outcome("Ferritin", entities.StatusNegative),
		},
	}}
	groups = grouper.Group(labeled, nil)
	if groups[0].TestType != "Wellness Panel" {
		t.Errorf("Expected shared panel label, got %q", groups[0].TestType)
	}

	mixed := []entities.RawExtraction{{
		CollectionDate: day(4),
		Outcomes: []entities.TestOutcome{
			outcome("Vitamin D", entities.StatusNegative),
			outcome("Ferritin", entities.StatusNegative),
		},
	}}
	groups = grouper.Group(mixed, nil)
	if !strings.HasPrefix(groups[0].TestType, "Combined Panel") {
		t.Errorf("Expected generic composite label, got %q", groups[0].TestType)
	}
}

func TestBuildRecord(t *testing.T) {
	grouper := newTestGrouper(t)

	documents := []entities.RawExtraction{{
		CollectionDate: day(1),
		Outcomes:       []entities.TestOutcome{outcome("HIV", entities.StatusNegative)},
		Evidence:       &entities.VerificationEvidence{LabName: "LifeLabs", HasHealthCard: true},
		RawText:        "HIV antibody screen negative collected March 1 at LifeLabs",
	}}

	groups := grouper.Group(documents, nil)
	record := BuildRecord(groups[0])

	if record.ID == "" {
		t.Error("Expected a record ID")
	}
	if record.ContentHash == "" || record.ContentSimhash == "" {
		t.Error("Expected first fingerprint pair on the record")
	}
	if !record.IsVerified {
		t.Error("Expected verified record")
	}
	if record.VerificationScore != groups[0].Verification.Score {
		t.Errorf("Expected persisted score %d, got %d", groups[0].Verification.Score, record.VerificationScore)
	}
	if record.OverallStatus != entities.StatusNegative {
		t.Errorf("Expected negative overall, got %s", record.OverallStatus)
	}
}
