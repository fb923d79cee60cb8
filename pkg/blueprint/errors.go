package blueprint

import (
	"errors"
	"fmt"
)

// ErrInvalidStructure indicates the source document does not have the blueprint shape.
var ErrInvalidStructure = errors.New("invalid blueprint structure")

// StructureError wraps ErrInvalidStructure with the offending field.
type StructureError struct {
	Field   string // JSON path of the offending field, empty for the document itself
	Message string
}

func (e *StructureError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidStructure, e.Message)
	}

	return fmt.Sprintf("%v: %s: %s", ErrInvalidStructure, e.Field, e.Message)
}

func (e *StructureError) Unwrap() error {
	return ErrInvalidStructure
}

// NewStructureError creates a structure error for a field.
func NewStructureError(field, message string) *StructureError {
	return &StructureError{Field: field, Message: message}
}

// IsStructureError checks if an error indicates a malformed source document.
func IsStructureError(err error) bool {
	return errors.Is(err, ErrInvalidStructure)
}
