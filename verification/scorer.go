// Package verification scores a parsed document's evidence into a
// confidence measure of whether the upload is an authentic lab report.
// Scoring is a pure computation: the only dependency is the read-only lab
// directory, so a Scorer is safe for concurrent use.
package verification

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/labdirectory"
)

// unrecognizedLabDetails is reported on identifier checks when the lab
// itself could not be recognized; identifiers are meaningless without a
// known issuer.
const unrecognizedLabDetails = "cannot verify identifiers (unrecognized lab)"

// Weights controls each check's contribution to the 0-100 score. The
// recognized lab carries the most weight, then identifiers, then the name
// match and a plausible collection date.
type Weights struct {
	RecognizedLab   int
	HealthCard      int
	AccessionNumber int
	NameMatch       int
	CollectionDate  int
}

// DefaultWeights mirrors the scoring used in production.
func DefaultWeights() Weights {
	return Weights{
		RecognizedLab:   40,
		HealthCard:      20,
		AccessionNumber: 20,
		NameMatch:       10,
		CollectionDate:  10,
	}
}

// Scorer evaluates verification evidence against the lab directory.
type Scorer struct {
	directory *labdirectory.Directory
	weights   Weights
	now       func() time.Time
}

// NewScorer creates a scorer with default weights.
func NewScorer(directory *labdirectory.Directory) *Scorer {
	return &Scorer{
		directory: directory,
		weights:   DefaultWeights(),
		now:       time.Now,
	}
}

// NewScorerWithClock creates a scorer with an injected clock for tests.
func NewScorerWithClock(directory *labdirectory.Directory, now func() time.Time) *Scorer {
	s := NewScorer(directory)
	s.now = now
	return s
}

// ScoreDocument scores one extraction against the user profile.
func (s *Scorer) ScoreDocument(doc *entities.RawExtraction, profile *entities.UserProfile) entities.VerificationResult {
	if doc == nil {
		return s.Score(nil, nil, profile)
	}
	return s.Score(doc.Evidence, doc.CollectionDate, profile)
}

// Score converts evidence, the declared collection date and the profile
// into a VerificationResult. Documents with no detectable evidence score 0
// and are marked unverified, but never rejected here; only the future-date
// gate is a hard policy.
func (s *Scorer) Score(evidence *entities.VerificationEvidence, collectionDate *time.Time, profile *entities.UserProfile) entities.VerificationResult {
	if evidence == nil {
		evidence = &entities.VerificationEvidence{}
	}

	var checks []entities.VerificationCheck
	earned := 0
	possible := 0

	// recognized_lab gates the identifier checks.
	labPassed := false
	labDetails := "no lab name detected"
	if evidence.LabName != "" {
		if lab, ok := s.directory.FindLab(evidence.LabName); ok {
			labPassed = true
			labDetails = fmt.Sprintf("matched %s (%s)", lab.CanonicalName, lab.Region)
		} else {
			labDetails = fmt.Sprintf("%q is not a recognized laboratory", evidence.LabName)
		}
	}
	checks = append(checks, entities.VerificationCheck{
		Name:    entities.CheckRecognizedLab,
		Passed:  labPassed,
		Details: labDetails,
	})
	possible += s.weights.RecognizedLab
	if labPassed {
		earned += s.weights.RecognizedLab
	}

	// Identifier checks only mean something when the lab is recognized.
	healthCardPassed := labPassed && evidence.HasHealthCard
	accessionPassed := labPassed && evidence.HasAccessionNumber

	checks = append(checks, identifierCheck(entities.CheckHealthCard, labPassed, evidence.HasHealthCard,
		"health card identifier detected", "no health card identifier detected"))
	checks = append(checks, identifierCheck(entities.CheckAccessionNumber, labPassed, evidence.HasAccessionNumber,
		"accession number detected", "no accession number detected"))
	possible += s.weights.HealthCard + s.weights.AccessionNumber
	if healthCardPassed {
		earned += s.weights.HealthCard
	}
	if accessionPassed {
		earned += s.weights.AccessionNumber
	}

	// name_match is only evaluated when the profile declares a name.
	profileName := ""
	if profile != nil {
		profileName = strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	}
	if profileName != "" {
		passed := nameMatches(evidence.PatientName, profileName)
		details := "patient name matches profile"
		if !passed {
			if evidence.PatientName == "" {
				details = "no patient name detected"
			} else {
				details = "patient name does not match profile"
			}
		}
		checks = append(checks, entities.VerificationCheck{
			Name:    entities.CheckNameMatch,
			Passed:  passed,
			Details: details,
		})
		possible += s.weights.NameMatch
		if passed {
			earned += s.weights.NameMatch
		}
	}

	// collection_date is evaluated when a date was detected. A future date
	// is a hard gate regardless of every other check.
	hasFutureDate := false
	if collectionDate != nil {
		hasFutureDate = isFutureDay(*collectionDate, s.now())
		details := fmt.Sprintf("collection date %s", collectionDate.Format("2006-01-02"))
		if hasFutureDate {
			details = fmt.Sprintf("collection date %s is in the future", collectionDate.Format("2006-01-02"))
		}
		checks = append(checks, entities.VerificationCheck{
			Name:    entities.CheckCollectionDate,
			Passed:  !hasFutureDate,
			Details: details,
		})
		possible += s.weights.CollectionDate
		if !hasFutureDate {
			earned += s.weights.CollectionDate
		}
	}

	score := 0
	if possible > 0 {
		score = earned * 100 / possible
	}

	return entities.VerificationResult{
		Score:         score,
		Level:         levelFor(score),
		IsVerified:    !hasFutureDate && labPassed && (healthCardPassed || accessionPassed),
		HasFutureDate: hasFutureDate,
		Checks:        checks,
	}
}

func identifierCheck(name string, labPassed, detected bool, passedDetails, failedDetails string) entities.VerificationCheck {
	if !labPassed {
		return entities.VerificationCheck{Name: name, Passed: false, Details: unrecognizedLabDetails}
	}
	details := failedDetails
	if detected {
		details = passedDetails
	}
	return entities.VerificationCheck{Name: name, Passed: detected, Details: details}
}

func levelFor(score int) entities.VerificationLevel {
	switch {
	case score == 0:
		return entities.LevelNone
	case score < 25:
		return entities.LevelLow
	case score < 75:
		return entities.LevelMedium
	default:
		return entities.LevelHigh
	}
}

// isFutureDay compares calendar days only; a document collected later
// today is not a future date.
func isFutureDay(date, now time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 {
		return y1 > y2
	}
	if m1 != m2 {
		return m1 > m2
	}
	return d1 > d2
}

// nameMatches reports whether every word of the profile name appears in
// the detected patient name, case-insensitive and accent-insensitive.
// Handles "Jane Doe", "DOE, JANE" and accented forms alike.
func nameMatches(detected, profileName string) bool {
	if strings.TrimSpace(detected) == "" {
		return false
	}

	detectedWords := nameWords(detected)
	profileWords := nameWords(profileName)
	if len(profileWords) == 0 || len(detectedWords) == 0 {
		return false
	}

	detectedSet := make(map[string]bool, len(detectedWords))
	for _, w := range detectedWords {
		detectedSet[w] = true
	}

	for _, w := range profileWords {
		if !detectedSet[w] {
			return false
		}
	}
	return true
}

func nameWords(s string) []string {
	return strings.FieldsFunc(labdirectory.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
