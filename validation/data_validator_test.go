package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

func TestNewDataValidator(t *testing.T) {
	validator := NewDataValidator()

	if validator == nil {
		t.Fatal("NewDataValidator returned nil")
	}

	// Type assertion to verify it's the correct type
	if _, ok := validator.(*DataValidatorImpl); !ok {
		t.Error("NewDataValidator should return *DataValidatorImpl")
	}
}

func TestValidateExtraction_Valid(t *testing.T) {
	validator := NewDataValidator()

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	extraction := &entities.RawExtraction{
		FileLabel:      "report-march.pdf",
		CollectionDate: &date,
		PanelLabel:     "Routine STI Panel",
		Outcomes: []entities.TestOutcome{
			{Name: "HIV 1/2 Ag/Ab", Result: "Non-reactive", Status: entities.StatusNegative},
			{Name: "Chlamydia trachomatis", Result: "Not detected", Status: entities.StatusNegative},
		},
		RawText: "HIV 1/2 Ag/Ab Non-reactive",
	}

	if err := validator.ValidateExtraction(extraction); err != nil {
		t.Errorf("Expected no error for valid extraction, got: %v", err)
	}
}

func TestValidateExtraction_Nil(t *testing.T) {
	validator := NewDataValidator()

	err := validator.ValidateExtraction(nil)
	if err == nil {
		t.Error("Expected error for nil extraction")
	}

	expectedError := "extraction is nil"
	if err.Error() != expectedError {
		t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
	}
}

func TestValidateExtraction_EmptyTestName(t *testing.T) {
	validator := NewDataValidator()

	extraction := &entities.RawExtraction{
		FileLabel: "report.pdf",
		Outcomes: []entities.TestOutcome{
			{Name: "   ", Result: "Negative", Status: entities.StatusNegative},
		},
	}

	if err := validator.ValidateExtraction(extraction); err == nil {
		t.Error("Expected error for blank test name")
	}
}

func TestValidateExtraction_Lengths(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name       string
		extraction *entities.RawExtraction
	}{
		{"Long file label", &entities.RawExtraction{FileLabel: strings.Repeat("a", 300)}},
		{"Long notes", &entities.RawExtraction{Notes: strings.Repeat("n", 6000)}},
		{"Long raw text", &entities.RawExtraction{RawText: strings.Repeat("t", 250000)}},
		{"Long test name", &entities.RawExtraction{Outcomes: []entities.TestOutcome{
			{Name: strings.Repeat("x", 200), Status: entities.StatusNegative},
		}}},
		{"Long test result", &entities.RawExtraction{Outcomes: []entities.TestOutcome{
			{Name: "HIV", Result: strings.Repeat("r", 600), Status: entities.StatusNegative},
		}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validator.ValidateExtraction(tc.extraction); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestValidateExtraction_DateBounds(t *testing.T) {
	validator := NewDataValidator()

	ancient := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	farFuture := time.Now().AddDate(10, 0, 0)
	recent := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := validator.ValidateExtraction(&entities.RawExtraction{CollectionDate: &ancient}); err == nil {
		t.Error("Expected error for year 1900 collection date")
	}
	if err := validator.ValidateExtraction(&entities.RawExtraction{CollectionDate: &farFuture}); err == nil {
		t.Error("Expected error for far future collection date")
	}
	if err := validator.ValidateExtraction(&entities.RawExtraction{CollectionDate: &recent}); err != nil {
		t.Errorf("Expected no error for recent date, got: %v", err)
	}
}

func TestValidateInput_Valid(t *testing.T) {
	validator := NewDataValidator()

	validInputs := []string{
		"LifeLabs",
		"Public Health Ontario",
		"Optilab Montréal",
		"HIV 1/2 Ag/Ab",
		"Dynacare (Ontario)",
	}

	for _, input := range validInputs {
		if err := validator.ValidateInput(input); err != nil {
			t.Errorf("Expected no error for %q, got: %v", input, err)
		}
	}
}

func TestValidateInput_Invalid(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Whitespace only", "   "},
		{"Too short", "a"},
		{"Too long", strings.Repeat("a", 150)},
		{"Too many words", "one two three four five six seven eight nine"},
		{"Script tag", "<script>alert(1)</script>"},
		{"SQL injection", "labs' or 1=1 --"},
		{"Path traversal", "../../etc/passwd"},
		{"Command injection", "labs; rm -rf /"},
		{"Excessive repetition", "aaaaaaaaaaaaaaaaaaaa"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validator.ValidateInput(tc.input); err == nil {
				t.Errorf("Expected error for %q, got nil", tc.input)
			}
		})
	}
}

func TestValidateExactHash(t *testing.T) {
	validator := NewDataValidator()

	valid := strings.Repeat("ab", 32)
	if err := validator.ValidateExactHash(valid); err != nil {
		t.Errorf("Expected no error for valid hash, got: %v", err)
	}

	invalid := []string{
		"",
		"abc123",
		strings.Repeat("A", 64),
		strings.Repeat("g", 64),
		strings.Repeat("a", 63),
		strings.Repeat("a", 65),
	}
	for _, input := range invalid {
		if err := validator.ValidateExactHash(input); err == nil {
			t.Errorf("Expected error for %q, got nil", input)
		}
	}
}

func TestValidateSimHash(t *testing.T) {
	validator := NewDataValidator()

	if err := validator.ValidateSimHash("00ff00ff00ff00ff"); err != nil {
		t.Errorf("Expected no error for valid simhash, got: %v", err)
	}

	invalid := []string{
		"",
		"00ff",
		strings.Repeat("f", 17),
		strings.Repeat("Z", 16),
	}
	for _, input := range invalid {
		if err := validator.ValidateSimHash(input); err == nil {
			t.Errorf("Expected error for %q, got nil", input)
		}
	}
}
