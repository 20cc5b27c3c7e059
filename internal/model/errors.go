package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrEncoding     = errors.New("encoding failed")
	ErrOptimization = errors.New("optimization failed")
)

// ValidationError reports bad or missing user input. The caller should
// re-prompt for corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// EncodingError reports a payload that cannot be encoded with the current
// parameters, e.g. one that exceeds the symbol capacity.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrEncoding, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrEncoding, e.Reason)
}

func (e *EncodingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrEncoding, e.Err}
	}
	return []error{ErrEncoding}
}

// OptimizationError reports a failed call to the design optimization
// service. Reason carries the upstream message.
type OptimizationError struct {
	Reason string
	Err    error
}

func (e *OptimizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrOptimization, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrOptimization, e.Reason)
}

func (e *OptimizationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrOptimization, e.Err}
	}
	return []error{ErrOptimization}
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
