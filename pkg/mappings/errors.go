package mappings

import (
	"errors"
	"fmt"
)

// ErrInvalidMapping is returned when a mapping table does not satisfy its schema.
var ErrInvalidMapping = errors.New("invalid mapping table")

// ValidationError describes why a mapping table, or one entry of it, was rejected.
type ValidationError struct {
	ModuleType string
	Err        error
}

func (e *ValidationError) Error() string {
	if e.ModuleType == "" {
		return fmt.Sprintf("invalid mapping table: %v", e.Err)
	}

	return fmt.Sprintf("invalid mapping for module type '%s': %v", e.ModuleType, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidMapping
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
