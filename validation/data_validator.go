// Package validation provides input validation functionality for the lab records API.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/interfaces"
)

// Pre-compiled regex patterns for performance optimization
// Compiled once at package initialization and reused for all validations
var (
	// Input validation: alphanumeric + accented letters + safe punctuation
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'(),/:]+$`)

	// Hex hash validation, fixed widths for SHA-256 and 64-bit simhash
	exactHashRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)
	simHashRegex   = regexp.MustCompile(`^[0-9a-f]{16}$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	// strings.Contains is 5-10x faster than regex for these patterns
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${", // Command injection
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://", // Path traversal
		// LDAP injection patterns
		"*)(", "*|(", "*)%", // LDAP injection
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:", // NoSQL injection
	}
)

// Limits for parsed document payloads
const (
	maxFileLabelLength  = 255
	maxTestNameLength   = 120
	maxResultLength     = 500
	maxNotesLength      = 5000
	maxRawTextLength    = 200000
	maxOutcomesPerDoc   = 100
	oldestAcceptedYear  = 1950
	maxFutureDriftYears = 5
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateExtraction checks if a parsed document extraction is usable
func (v *DataValidatorImpl) ValidateExtraction(e *entities.RawExtraction) error {
	if e == nil {
		return fmt.Errorf("extraction is nil")
	}

	if len(e.FileLabel) > maxFileLabelLength {
		return fmt.Errorf("file label too long: %d characters", len(e.FileLabel))
	}

	if len(e.RawText) > maxRawTextLength {
		return fmt.Errorf("raw text too long for %q: %d characters", e.FileLabel, len(e.RawText))
	}

	if len(e.Notes) > maxNotesLength {
		return fmt.Errorf("notes too long for %q: %d characters", e.FileLabel, len(e.Notes))
	}

	if len(e.Outcomes) > maxOutcomesPerDoc {
		return fmt.Errorf("too many test outcomes for %q: %d", e.FileLabel, len(e.Outcomes))
	}

	for i, outcome := range e.Outcomes {
		if strings.TrimSpace(outcome.Name) == "" {
			return fmt.Errorf("empty test name at index %d for %q", i, e.FileLabel)
		}
		if len(outcome.Name) > maxTestNameLength {
			return fmt.Errorf("test name too long at index %d for %q: %d characters", i, e.FileLabel, len(outcome.Name))
		}
		if len(outcome.Result) > maxResultLength {
			return fmt.Errorf("test result too long at index %d for %q: %d characters", i, e.FileLabel, len(outcome.Result))
		}
	}

	if e.CollectionDate != nil {
		year := e.CollectionDate.Year()
		if year < oldestAcceptedYear {
			return fmt.Errorf("collection date too old for %q: year %d", e.FileLabel, year)
		}
		if year > time.Now().Year()+maxFutureDriftYears {
			return fmt.Errorf("collection date too far in the future for %q: year %d", e.FileLabel, year)
		}
	}

	return nil
}

// ValidateInput validates user input strings with enhanced security
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < 2 {
		return fmt.Errorf("input too short: minimum 2 characters")
	}

	if len(input) > 100 {
		return fmt.Errorf("input too long: maximum 100 characters")
	}

	// Word count validation to prevent DoS attacks with many short words
	words := strings.Fields(input)
	if len(words) > 8 {
		return fmt.Errorf("search query too complex: maximum 8 words allowed")
	}

	// Check for potentially dangerous patterns using string matching (5-10x faster than regex)
	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	// Allow only letters, numbers, spaces, and safe punctuation
	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, and common punctuation are allowed")
	}

	// Additional checks for repeated characters (potential DoS)
	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateExactHash validates a hex-encoded SHA-256 content hash
func (v *DataValidatorImpl) ValidateExactHash(input string) error {
	if input == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if !exactHashRegex.MatchString(input) {
		return fmt.Errorf("content hash must be 64 lowercase hex characters")
	}

	return nil
}

// ValidateSimHash validates a hex-encoded 64-bit simhash
func (v *DataValidatorImpl) ValidateSimHash(input string) error {
	if input == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if !simHashRegex.MatchString(input) {
		return fmt.Errorf("simhash must be 16 lowercase hex characters")
	}

	return nil
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	// Check for the same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
