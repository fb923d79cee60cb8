package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrConversionNotFound indicates no archived conversion has the given identifier.
	ErrConversionNotFound = errors.New("conversion not found")

	// ErrInvalidConversion indicates a conversion cannot be archived as given.
	ErrInvalidConversion = errors.New("invalid conversion")
)

// ConversionError wraps archive errors with the operation and conversion involved.
type ConversionError struct {
	Op           string // e.g. "Save", "GetByID", "Delete"
	ConversionID string
	Err          error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s operation failed for conversion %s: %v", e.Op, e.ConversionID, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func (e *ConversionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewConversionError(op, conversionID string, err error) *ConversionError {
	return &ConversionError{
		Op:           op,
		ConversionID: conversionID,
		Err:          err,
	}
}

// IsConversionNotFound checks if an error indicates a conversion was not found.
func IsConversionNotFound(err error) bool {
	return errors.Is(err, ErrConversionNotFound)
}
