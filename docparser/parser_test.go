package docparser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// stubParser fails files listed in failures and succeeds otherwise.
type stubParser struct {
	failures map[string]error
	calls    int
}

func (p *stubParser) Parse(_ context.Context, input ParseInput) (*entities.RawExtraction, error) {
	p.calls++
	if err, ok := p.failures[input.FileLabel]; ok {
		return nil, err
	}
	return &entities.RawExtraction{
		Outcomes: []entities.TestOutcome{{Name: "HIV", Status: entities.StatusNegative}},
	}, nil
}

func TestParseBatchContinuesPastFailures(t *testing.T) {
	parser := &stubParser{failures: map[string]error{
		"b.jpg": NewParseError(StageOCR, "b.jpg", "image too blurry", nil),
	}}

	inputs := []ParseInput{
		{FileLabel: "a.jpg"},
		{FileLabel: "b.jpg"},
		{FileLabel: "c.jpg"},
	}

	result, err := ParseBatch(context.Background(), parser, inputs)
	if err != nil {
		t.Fatalf("Expected no batch error, got %v", err)
	}

	if parser.calls != 3 {
		t.Errorf("Expected all 3 files attempted, got %d", parser.calls)
	}
	if len(result.Extractions) != 2 {
		t.Errorf("Expected 2 extractions, got %d", len(result.Extractions))
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(result.Failures))
	}

	failure := result.Failures[0]
	if failure.FileLabel != "b.jpg" {
		t.Errorf("Expected failure for b.jpg, got %q", failure.FileLabel)
	}
	if failure.Stage != StageOCR {
		t.Errorf("Expected ocr stage, got %s", failure.Stage)
	}
	if failure.Message != "image too blurry" {
		t.Errorf("Expected parser message, got %q", failure.Message)
	}
}

func TestParseBatchAttachesFileLabel(t *testing.T) {
	parser := &stubParser{}

	result, err := ParseBatch(context.Background(), parser, []ParseInput{{FileLabel: "scan-1.pdf"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Extractions[0].FileLabel != "scan-1.pdf" {
		t.Errorf("Expected file label attached, got %q", result.Extractions[0].FileLabel)
	}
}

func TestParseBatchUntypedErrorMapsToUnknownStage(t *testing.T) {
	parser := &stubParser{failures: map[string]error{
		"x.pdf": fmt.Errorf("something odd"),
	}}

	result, err := ParseBatch(context.Background(), parser, []ParseInput{{FileLabel: "x.pdf"}})
	if err != nil {
		t.Fatalf("Expected no batch error, got %v", err)
	}
	if result.Failures[0].Stage != StageUnknown {
		t.Errorf("Expected unknown stage for untyped error, got %s", result.Failures[0].Stage)
	}
}

func TestParseBatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser := &stubParser{}
	_, err := ParseBatch(ctx, parser, []ParseInput{{FileLabel: "a.jpg"}})
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if parser.calls != 0 {
		t.Errorf("Expected no parse attempts after cancellation, got %d", parser.calls)
	}
}

func TestParseErrorFormatting(t *testing.T) {
	wrapped := errors.New("timeout")
	err := NewParseError(StageNetwork, "report.pdf", "upstream unreachable", wrapped)

	if !errors.Is(err, wrapped) {
		t.Error("Expected wrapped error in chain")
	}
	if StageOf(err) != StageNetwork {
		t.Errorf("Expected network stage, got %s", StageOf(err))
	}

	expected := "parse failed at network stage for report.pdf: upstream unreachable"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}
