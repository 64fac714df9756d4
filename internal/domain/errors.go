package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced session or sub-entity is absent.
var ErrNotFound = errors.New("not found")

// ErrAuth indicates both auth domains rejected the request. The reason
// (bad signature, expired, malformed) is deliberately not carried.
var ErrAuth = errors.New("authentication failed")

// ValidationError indicates malformed input. Never retried by the
// actor; the violated constraint is surfaced to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError indicates an operation invalid in the current state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// ProvisionError indicates upstream compute provisioning failed. The
// caller may retry when Retryable is set; the actor never auto-retries.
type ProvisionError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning %s failed: %v", e.Op, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// StorageError indicates a durable write failed. Fatal to the in-flight
// operation; transactions guarantee it is never partially applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
