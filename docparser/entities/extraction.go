// Package entities defines the data types shared across the lab records
// pipeline: parser output, test outcomes, verification evidence and the
// grouped records that get persisted.
package entities

import "time"

// TestStatus is the outcome of a single test line item.
type TestStatus string

const (
	StatusNegative     TestStatus = "negative"
	StatusPositive     TestStatus = "positive"
	StatusPending      TestStatus = "pending"
	StatusInconclusive TestStatus = "inconclusive"
)

// TestOutcome is one test line item extracted from a document.
// Name is the dedup/merge key after case and whitespace normalization.
type TestOutcome struct {
	Name   string     `json:"name"`
	Result string     `json:"result"`
	Status TestStatus `json:"status"`
}

// VerificationEvidence holds the raw signals the parser could detect on a
// document. All fields are optional; absence means "not detected", never
// "checked and absent".
type VerificationEvidence struct {
	LabName            string `json:"labName,omitempty"`
	PatientName        string `json:"patientName,omitempty"`
	HasHealthCard      bool   `json:"hasHealthCard"`
	HasAccessionNumber bool   `json:"hasAccessionNumber"`
}

// RawExtraction is the document parser's output for one file. It is
// immutable once produced and owned by the caller.
type RawExtraction struct {
	FileLabel      string                `json:"fileLabel,omitempty"`
	CollectionDate *time.Time            `json:"collectionDate,omitempty"`
	PanelLabel     string                `json:"panelLabel,omitempty"`
	Outcomes       []TestOutcome         `json:"outcomes"`
	Notes          string                `json:"notes,omitempty"`
	Evidence       *VerificationEvidence `json:"evidence,omitempty"`
	RawText        string                `json:"rawText,omitempty"`
}

// ContentFingerprint identifies a document's content for duplicate-upload
// detection. ExactHash is a hex sha256 digest of the normalized text;
// SimHash is a 16-character hex 64-bit locality-sensitive fingerprint.
type ContentFingerprint struct {
	ExactHash string `json:"exactHash"`
	SimHash   string `json:"simhash"`
}
