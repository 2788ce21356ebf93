package genotype

import (
	"errors"
	"fmt"
)

var (
	ErrMissingData = errors.New("genotype data is missing")
	ErrInvalidData = errors.New("invalid genotype data")
)

// InvalidDataError reports counts that are negative, non-finite or
// structurally inconsistent.
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidData, e.Reason)
}

func (e *InvalidDataError) Is(target error) bool {
	return target == ErrInvalidData
}

// MissingDataError is returned when a simulation step runs before any
// genotype data has been set.
type MissingDataError struct {
	Op string
}

func (e *MissingDataError) Error() string {
	if e.Op == "" {
		return ErrMissingData.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrMissingData)
}

func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingData
}

func invalidf(format string, args ...any) error {
	return &InvalidDataError{Reason: fmt.Sprintf(format, args...)}
}

// Invalidf builds an InvalidDataError for callers outside this package.
func Invalidf(format string, args ...any) error {
	return invalidf(format, args...)
}
