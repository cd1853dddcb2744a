package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during grading operations.
var (
	// ErrInvalidState indicates that a State operation received invalid input.
	ErrInvalidState = errors.New("invalid state")

	// ErrKeyNotFound indicates that a requested state key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrTypeMismatch indicates that a value's type doesn't match the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidAnswer indicates that an answer failed its category validator.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrInvalidCategory indicates an unknown answer category.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrNumberParse is the sentinel wrapped by every NumberParseError.
	ErrNumberParse = errors.New("number parse error")

	// ErrUnbalancedDelimiter is the sentinel wrapped by every UnbalancedDelimiterError.
	ErrUnbalancedDelimiter = errors.New("unbalanced delimiter")
)

// NumberParseError reports numeric text that could not be parsed.
// The comparator recovers from it by comparing the answers as strings.
type NumberParseError struct {
	// Input is the text that failed to parse.
	Input string

	// Reason describes which part of the literal was malformed.
	Reason string
}

// Error implements the error interface for NumberParseError.
func (e *NumberParseError) Error() string {
	return fmt.Sprintf("number parse error: %s: %q", e.Reason, e.Input)
}

// Unwrap lets errors.Is match ErrNumberParse.
func (e *NumberParseError) Unwrap() error { return ErrNumberParse }

// UnbalancedDelimiterError reports a brace, bracket or parenthesis that was
// opened but never closed. Repaired holds the best-effort content with the
// unmatched delimiters removed.
type UnbalancedDelimiterError struct {
	// Input is the original text.
	Input string

	// Unclosed is the number of delimiters left open at end of input.
	Unclosed int

	// Repaired is the recovered content.
	Repaired string
}

// Error implements the error interface for UnbalancedDelimiterError.
func (e *UnbalancedDelimiterError) Error() string {
	return fmt.Sprintf("unbalanced delimiter: %d unclosed in %q", e.Unclosed, e.Input)
}

// Unwrap lets errors.Is match ErrUnbalancedDelimiter.
func (e *UnbalancedDelimiterError) Unwrap() error { return ErrUnbalancedDelimiter }

// StateError represents an error that occurred during State operations.
// It provides context about which key and operation caused the error.
type StateError struct {
	// Key is the name of the state key involved in the failed operation.
	Key string

	// Operation describes what operation was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key string, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
