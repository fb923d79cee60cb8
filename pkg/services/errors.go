// Package services holds the conversion use cases shared by the API and its background jobs.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowbridge/pkg/converter"
)

// Request errors map to 400 responses.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidSortOrder    = errors.New("invalid sort order")
	ErrInvalidPagination   = errors.New("invalid pagination")
	ErrConversionIDMissing = errors.New("conversion ID cannot be empty")
)

// ErrArchiveDisabled is returned by archive operations when no archive is configured.
var ErrArchiveDisabled = errors.New("conversion archive is not configured")

// ParameterError rejects a single request parameter. It matches its Kind with errors.Is.
type ParameterError struct {
	Op        string
	Parameter string
	Value     any
	Allowed   string
	Kind      error
}

func (e *ParameterError) Error() string {
	msg := fmt.Sprintf("%s: %v: %s=%v", e.Op, e.Kind, e.Parameter, e.Value)
	if e.Allowed != "" {
		msg += " (allowed: " + e.Allowed + ")"
	}

	return msg
}

func (e *ParameterError) Unwrap() error {
	return e.Kind
}

func newParameterError(op string, kind error, parameter string, value any, allowed string) *ParameterError {
	return &ParameterError{Op: op, Parameter: parameter, Value: value, Allowed: allowed, Kind: kind}
}

// IsValidationError reports whether err is the caller's fault. Malformed blueprints
// count as validation errors.
func IsValidationError(err error) bool {
	var paramErr *ParameterError
	if errors.As(err, &paramErr) {
		return true
	}

	for _, target := range []error{ErrInvalidRequest, ErrInvalidSortOrder, ErrInvalidPagination, ErrConversionIDMissing} {
		if errors.Is(err, target) {
			return true
		}
	}

	return converter.IsInputError(err)
}

func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrArchiveDisabled)
}
