package converter

import (
	"errors"
	"fmt"

	"github.com/dukex/flowbridge/pkg/blueprint"
)

var (
	// ErrInternal marks an unexpected failure inside the pipeline. No partial result
	// accompanies it.
	ErrInternal = errors.New("internal conversion failure")

	// ErrInvalidJSON is returned when the input bytes are not a JSON document.
	ErrInvalidJSON = errors.New("invalid JSON format")

	// ErrHTMLContent is returned when the input is an HTML page instead of a blueprint export.
	ErrHTMLContent = errors.New("received HTML content instead of JSON")
)

// HTMLContentMessage explains the usual cause of ErrHTMLContent to end users.
const HTMLContentMessage = "Received HTML content instead of JSON. This can happen when downloading " +
	"from Make.com via browser save. Please use the 'Export blueprint' option in Make.com."

// Conversion stages, used to label internal failures and spans.
const (
	StageDecode   = "decode"
	StageValidate = "validate"
	StageExtract  = "extract"
	StageMap      = "map"
	StageAssemble = "assemble"
)

// InternalError wraps ErrInternal with the stage that failed.
type InternalError struct {
	Stage string
	Err   error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%v during %s: %v", ErrInternal, e.Stage, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}

// SyntaxError reports where a JSON document stopped parsing. Line and Column start at 1.
type SyntaxError struct {
	Line   int
	Column int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: line %d, column %d: %v", ErrInvalidJSON, e.Line, e.Column, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrInvalidJSON
}

// IsInternalError reports whether err is an unexpected pipeline failure.
func IsInternalError(err error) bool {
	return errors.Is(err, ErrInternal)
}

// IsInputError reports whether err was caused by the caller's document.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, ErrHTMLContent) ||
		blueprint.IsStructureError(err)
}
