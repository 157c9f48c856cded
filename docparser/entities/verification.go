package entities

// VerificationLevel buckets a verification score into a coarse confidence
// tier shown to the user.
type VerificationLevel string

const (
	LevelNone   VerificationLevel = "none"
	LevelLow    VerificationLevel = "low"
	LevelMedium VerificationLevel = "medium"
	LevelHigh   VerificationLevel = "high"
)

// Check names reported in VerificationResult.Checks.
const (
	CheckRecognizedLab   = "recognized_lab"
	CheckHealthCard      = "health_card"
	CheckAccessionNumber = "accession_number"
	CheckNameMatch       = "name_match"
	CheckCollectionDate  = "collection_date"
)

// VerificationCheck is one named check with enough detail for a caller to
// build a human-readable explanation.
type VerificationCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// VerificationResult is the scored assessment of a document's evidence.
// It is derived data: recomputed whenever the evidence changes and never
// persisted independent of its source.
type VerificationResult struct {
	Score         int                 `json:"score"`
	Level         VerificationLevel   `json:"level"`
	IsVerified    bool                `json:"isVerified"`
	HasFutureDate bool                `json:"hasFutureDate"`
	Checks        []VerificationCheck `json:"checks"`
}

// RecognizedLab is one entry of the curated laboratory directory.
// Directory entries are static reference data, loaded once and read-only.
type RecognizedLab struct {
	ID              string   `json:"id"`
	CanonicalName   string   `json:"canonicalName"`
	Variants        []string `json:"variants,omitempty"`
	Abbreviations   []string `json:"abbreviations,omitempty"`
	Region          string   `json:"region"`
	AccessionFormat string   `json:"accessionFormat,omitempty"`
	HealthCardName  string   `json:"healthCardName,omitempty"`
}
