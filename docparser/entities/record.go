package entities

import "time"

// TestConflict records a test name that produced different statuses across
// sources, plus the suggested resolution under clinical precedence.
type TestConflict struct {
	TestName    string        `json:"testName"`
	Occurrences []TestOutcome `json:"occurrences"`
	Suggested   TestOutcome   `json:"suggested"`
}

// DateGroup is the unit of persistence: all deduplicated test outcomes
// believed to come from one collection event on one date. A nil Date means
// no member document carried a detectable collection date.
type DateGroup struct {
	Date             *time.Time          `json:"date,omitempty"`
	Tests            []TestOutcome       `json:"tests"`
	TestType         string              `json:"testType"`
	OverallStatus    TestStatus          `json:"overallStatus"`
	Notes            string              `json:"notes,omitempty"`
	IsVerified       bool                `json:"isVerified"`
	Verification     *VerificationResult `json:"verification,omitempty"`
	Conflicts        []TestConflict      `json:"conflicts,omitempty"`
	ContentHashes    []string            `json:"contentHashes,omitempty"`
	ContentSimhashes []string            `json:"contentSimhashes,omitempty"`
}

// LabRecord is the flattened persistence payload derived from one DateGroup.
// Only the first content hash/simhash pair is kept for duplicate lookups.
type LabRecord struct {
	ID                string            `json:"id"`
	Date              *time.Time        `json:"date,omitempty"`
	Tests             []TestOutcome     `json:"tests"`
	TestType          string            `json:"testType"`
	OverallStatus     TestStatus        `json:"overallStatus"`
	Notes             string            `json:"notes,omitempty"`
	VerificationScore int               `json:"verificationScore"`
	VerificationLevel VerificationLevel `json:"verificationLevel"`
	IsVerified        bool              `json:"isVerified"`
	ContentHash       string            `json:"contentHash,omitempty"`
	ContentSimhash    string            `json:"contentSimhash,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}
