package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for field lookups.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrNotNumeric   = errors.New("field is not numeric")
)

// Sentinel errors for record validation.
var (
	ErrMetricOutOfRange = errors.New("metric out of range")
	ErrInvalidYear      = errors.New("end_year must be empty or a 4-digit year")
	ErrEmptyBatch       = errors.New("at least one record is required")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
