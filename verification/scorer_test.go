package verification

import (
	"testing"
	"time"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/labdirectory"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	directory, err := labdirectory.Load()
	if err != nil {
		t.Fatalf("Expected directory to load, got %v", err)
	}
	return NewScorerWithClock(directory, func() time.Time { return testNow })
}

func datePtr(t time.Time) *time.Time { return &t }

func findCheck(t *testing.T, result entities.VerificationResult, name string) entities.VerificationCheck {
	t.Helper()
	for _, check := range result.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("Check %q not found in %+v", name, result.Checks)
	return entities.VerificationCheck{}
}

func TestScoreNoEvidence(t *testing.T) {
	scorer := newTestScorer(t)

	result := scorer.Score(nil, nil, nil)

	if result.Score != 0 {
		t.Errorf("Expected score 0 with no evidence, got %d", result.Score)
	}
	if result.Level != entities.LevelNone {
		t.Errorf("Expected level none, got %s", result.Level)
	}
	if result.IsVerified {
		t.Error("Expected unverified with no evidence")
	}
	if result.HasFutureDate {
		t.Error("Expected no future date flag with no date")
	}
}

func TestScoreFullEvidence(t *testing.T) {
	scorer := newTestScorer(t)

	evidence := &entities.VerificationEvidence{
		LabName:            "LifeLabs",
		PatientName:        "Jane Doe",
		HasHealthCard:      true,
		HasAccessionNumber: true,
	}
	profile := &entities.UserProfile{FirstName: "Jane", LastName: "Doe"}
	collected := datePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	result := scorer.Score(evidence, collected, profile)

	if result.Score != 100 {
		t.Errorf("Expected score 100, got %d", result.Score)
	}
	if result.Level != entities.LevelHigh {
		t.Errorf("Expected level high, got %s", result.Level)
	}
	if !result.IsVerified {
		t.Error("Expected verified with full evidence")
	}
	if len(result.Checks) != 5 {
		t.Errorf("Expected 5 checks, got %d", len(result.Checks))
	}
}

func TestFutureDateIsHardGate(t *testing.T) {
	scorer := newTestScorer(t)

	evidence := &entities.VerificationEvidence{
		LabName:            "LifeLabs",
		PatientName:        "Jane Doe",
		HasHealthCard:      true,
		HasAccessionNumber: true,
	}
	profile := &entities.UserProfile{FirstName: "Jane", LastName: "Doe"}
	future := datePtr(testNow.AddDate(0, 0, 2))

	result := scorer.Score(evidence, future, profile)

	if !result.HasFutureDate {
		t.Fatal("Expected future date flag")
	}
	if result.IsVerified {
		t.Error("Expected unverified regardless of other checks when date is in the future")
	}

	check := findCheck(t, result, entities.CheckCollectionDate)
	if check.Passed {
		t.Error("Expected collection_date check to fail for future date")
	}
}

func TestSameDayIsNotFuture(t *testing.T) {
	scorer := newTestScorer(t)

	sameDay := datePtr(time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 23, 0, 0, 0, time.UTC))
	result := scorer.Score(&entities.VerificationEvidence{LabName: "LifeLabs", HasHealthCard: true}, sameDay, nil)

	if result.HasFutureDate {
		t.Error("Expected same-day collection not to count as future")
	}
	if !result.IsVerified {
		t.Error("Expected verified with recognized lab, identifier and same-day date")
	}
}

func TestUnrecognizedLabGatesIdentifiers(t *testing.T) {
	scorer := newTestScorer(t)

	evidence := &entities.VerificationEvidence{
		LabName:            "Totally Unknown Facility",
		HasHealthCard:      true,
		HasAccessionNumber: true,
	}

	result := scorer.Score(evidence, nil, nil)

	if result.IsVerified {
		t.Error("Expected unverified with unrecognized lab")
	}

	for _, name := range []string{entities.CheckHealthCard, entities.CheckAccessionNumber} {
		check := findCheck(t, result, name)
		if check.Passed {
			t.Errorf("Expected %s to fail with unrecognized lab", name)
		}
		if check.Details != "cannot verify identifiers (unrecognized lab)" {
			t.Errorf("Expected gated details for %s, got %q", name, check.Details)
		}
	}
}

func TestVerifiedRequiresIdentifier(t *testing.T) {
	scorer := newTestScorer(t)

	// Recognized lab but no identifier at all: not verified.
	result := scorer.Score(&entities.VerificationEvidence{LabName: "LifeLabs"}, nil, nil)
	if result.IsVerified {
		t.Error("Expected unverified with no identifier check passed")
	}
	if result.Score == 0 {
		t.Error("Expected non-zero score for a recognized lab")
	}

	// One identifier suffices.
	result = scorer.Score(&entities.VerificationEvidence{LabName: "LifeLabs", HasAccessionNumber: true}, nil, nil)
	if !result.IsVerified {
		t.Error("Expected verified with recognized lab and one identifier")
	}
}

func TestScoreMonotonicInPassedChecks(t *testing.T) {
	scorer := newTestScorer(t)

	steps := []*entities.VerificationEvidence{
		{},
		{LabName: "LifeLabs"},
		{LabName: "LifeLabs", HasHealthCard: true},
		{LabName: "LifeLabs", HasHealthCard: true, HasAccessionNumber: true},
	}

	previous := -1
	for i, evidence := range steps {
		result := scorer.Score(evidence, nil, nil)
		if result.Score < previous {
			t.Errorf("Score decreased at step %d: %d < %d", i, result.Score, previous)
		}
		previous = result.Score
	}
}

func TestNameMatchOnlyWithProfile(t *testing.T) {
	scorer := newTestScorer(t)

	evidence := &entities.VerificationEvidence{LabName: "LifeLabs", PatientName: "Jane Doe"}

	withoutProfile := scorer.Score(evidence, nil, nil)
	for _, check := range withoutProfile.Checks {
		if check.Name == entities.CheckNameMatch {
			t.Error("Expected no name_match check without a profile name")
		}
	}

	withProfile := scorer.Score(evidence, nil, &entities.UserProfile{FirstName: "Jane", LastName: "Doe"})
	check := findCheck(t, withProfile, entities.CheckNameMatch)
	if !check.Passed {
		t.Error("Expected name_match to pass for matching names")
	}
}

func TestNameMatchVariants(t *testing.T) {
	scorer := newTestScorer(t)
	profile := &entities.UserProfile{FirstName: "José", LastName: "García"}

	testCases := []struct {
		detected string
		expected bool
	}{
		{"José García", true},
		{"jose garcia", true},
		{"GARCIA, JOSE", true},
		{"Jose M Garcia", true},
		{"John Smith", false},
		{"", false},
	}

	for _, tc := range testCases {
		evidence := &entities.VerificationEvidence{LabName: "LifeLabs", PatientName: tc.detected}
		result := scorer.Score(evidence, nil, profile)
		check := findCheck(t, result, entities.CheckNameMatch)
		if check.Passed != tc.expected {
			t.Errorf("name_match for %q = %v, expected %v", tc.detected, check.Passed, tc.expected)
		}
	}
}

func TestLevelBuckets(t *testing.T) {
	testCases := []struct {
		score    int
		expected entities.VerificationLevel
	}{
		{0, entities.LevelNone},
		{1, entities.LevelLow},
		{24, entities.LevelLow},
		{25, entities.LevelMedium},
		{74, entities.LevelMedium},
		{75, entities.LevelHigh},
		{100, entities.LevelHigh},
	}

	for _, tc := range testCases {
		if got := levelFor(tc.score); got != tc.expected {
			t.Errorf("levelFor(%d) = %s, expected %s", tc.score, got, tc.expected)
		}
	}
}
