// Package shared contains common domain types, errors and value objects
// used across the curriculum and grading packages. It has no external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors, matched with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrIncompleteProfile  = errors.New("incomplete profile")
	ErrNoActiveEnrollment = errors.New("no active enrollment")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")

	// Stored data violates the curriculum model (unknown kinds, orphan rows).
	ErrCorruptData = errors.New("corrupt data")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "curriculum", "grading"
	Op      string // operation that failed
	Kind    error  // base error for errors.Is()
	Message string
	Err     error // underlying error, optional
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against both the kind and the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Curriculum errors
var (
	ErrEnrollmentNotFound = NewDomainError("curriculum", "FindEnrollment", ErrNotFound, "enrollment not found")
	ErrStudentNotFound    = NewDomainError("curriculum", "FindStudent", ErrNotFound, "student not found")
	ErrEvaluationNotFound = NewDomainError("curriculum", "FindEvaluation", ErrNotFound, "evaluation not found")
	ErrNoEnrollment       = NewDomainError("curriculum", "FindActiveEnrollment", ErrNoActiveEnrollment, "student has no active enrollment")
)

// Grading errors
var (
	ErrMissingTargetDomain = NewDomainError("grading", "DiagnoseSkills", ErrIncompleteProfile, "student has no target domain")
	ErrInvalidTarget       = NewDomainError("grading", "SimulateTarget", ErrValueOutOfRange, "target average must be within [0, 20]")
	ErrInvalidScore        = NewDomainError("grading", "Validate", ErrValueOutOfRange, "score must be within [0, 20]")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIncompleteProfile checks if the student profile lacks required data.
func IsIncompleteProfile(err error) bool {
	return errors.Is(err, ErrIncompleteProfile)
}

// IsNoActiveEnrollment checks if the student is not enrolled for any period.
func IsNoActiveEnrollment(err error) bool {
	return errors.Is(err, ErrNoActiveEnrollment)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsCorruptData checks if stored data could not be turned into a snapshot.
func IsCorruptData(err error) bool {
	return errors.Is(err, ErrCorruptData)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
