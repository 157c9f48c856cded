// Package docparser defines the boundary to the external OCR/LLM document
// parser. The parser itself lives outside this service; this package only
// models its contract: one RawExtraction per file, or a typed failure
// tagged with the processing stage where it occurred.
package docparser

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
)

// Stage identifies where in the parsing pipeline a file failed.
type Stage string

const (
	StageNetwork    Stage = "network"
	StageOCR        Stage = "ocr"
	StageLLMParsing Stage = "llm_parsing"
	StageUnknown    Stage = "unknown"
)

// ParseError is a per-file parser failure. Failures are non-fatal to a
// batch: the batch keeps processing remaining files and the failure is
// surfaced per file.
type ParseError struct {
	Stage     Stage
	FileLabel string
	Message   string
	Err       error
}

func (e *ParseError) Error() string {
	if e.FileLabel != "" {
		return fmt.Sprintf("parse failed at %s stage for %s: %s", e.Stage, e.FileLabel, e.Message)
	}
	return fmt.Sprintf("parse failed at %s stage: %s", e.Stage, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError builds a typed failure for a file at a given stage.
func NewParseError(stage Stage, fileLabel, message string, err error) *ParseError {
	return &ParseError{Stage: stage, FileLabel: fileLabel, Message: message, Err: err}
}

// StageOf extracts the failure stage from an error, defaulting to unknown
// for errors that did not come from the parser boundary.
func StageOf(err error) Stage {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Stage
	}
	return StageUnknown
}

// ParseInput is one file handed to the parser.
type ParseInput struct {
	FileLabel   string `json:"fileLabel"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// Parser abstracts the external OCR/LLM document parser. This service
// never retries: it consumes the final result or failure per file.
type Parser interface {
	Parse(ctx context.Context, input ParseInput) (*entities.RawExtraction, error)
}

// FileFailure is the per-file failure surfaced to callers of ParseBatch.
type FileFailure struct {
	FileLabel string `json:"fileLabel"`
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
}

// BatchResult collects the successful extractions and per-file failures
// of one upload batch.
type BatchResult struct {
	Extractions []entities.RawExtraction `json:"extractions"`
	Failures    []FileFailure            `json:"failures"`
}

// ParseBatch runs the parser over every input, never aborting the batch on
// a per-file failure. The context is checked between files so a caller can
// discard partial work before grouping.
func ParseBatch(ctx context.Context, parser Parser, inputs []ParseInput) (BatchResult, error) {
	result := BatchResult{
		Extractions: make([]entities.RawExtraction, 0, len(inputs)),
		Failures:    []FileFailure{},
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch parsing cancelled: %w", err)
		}

		extraction, err := parser.Parse(ctx, input)
		if err != nil {
			failure := FileFailure{
				FileLabel: input.FileLabel,
				Stage:     StageOf(err),
				Message:   err.Error(),
			}
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				failure.Message = parseErr.Message
				if parseErr.FileLabel != "" {
					failure.FileLabel = parseErr.FileLabel
				}
			}
			result.Failures = append(result.Failures, failure)
			continue
		}
		if extraction == nil {
			result.Failures = append(result.Failures, FileFailure{
				FileLabel: input.FileLabel,
				Stage:     StageUnknown,
				Message:   "parser returned no extraction",
			})
			continue
		}

		if extraction.FileLabel == "" {
			extraction.FileLabel = input.FileLabel
		}
		result.Extractions = append(result.Extractions, *extraction)
	}

	return result, nil
}
