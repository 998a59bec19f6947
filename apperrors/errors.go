// Package apperrors defines the error taxonomy shared by the store, the
// lifecycle services and the HTTP boundary.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError. Controllers map codes to HTTP statuses.
type ErrorCode string

const (
	// ErrorCodeValidation indicates a missing or invalid input field
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeForbidden indicates the actor lacks the capability for the mutation
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeNotFound indicates the referenced record does not exist
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeConflict indicates a stale-version write that was not applied
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodePersistence indicates an underlying store failure
	ErrorCodePersistence ErrorCode = "PERSISTENCE_ERROR"
)

// AppError is a structured error carrying a code, a client-safe message and,
// for validation failures, the offending field.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code, so that
// errors.Is(err, ErrNotFound) works for any not-found error.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation  = &AppError{Code: ErrorCodeValidation, Message: "validation failed"}
	ErrForbidden   = &AppError{Code: ErrorCodeForbidden, Message: "forbidden"}
	ErrNotFound    = &AppError{Code: ErrorCodeNotFound, Message: "not found"}
	ErrConflict    = &AppError{Code: ErrorCodeConflict, Message: "conflict"}
	ErrPersistence = &AppError{Code: ErrorCodePersistence, Message: "persistence failure"}
)

// NewValidationError reports an invalid field.
func NewValidationError(field, message string) *AppError {
	return &AppError{Code: ErrorCodeValidation, Field: field, Message: message}
}

// NewForbiddenError reports a denied mutation.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: ErrorCodeForbidden, Message: message}
}

// NewNotFoundError reports a missing record.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: ErrorCodeNotFound, Message: message}
}

// NewConflictError reports a compare-and-swap miss.
func NewConflictError(message string) *AppError {
	return &AppError{Code: ErrorCodeConflict, Message: message}
}

// NewPersistenceError wraps a driver failure.
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{Code: ErrorCodePersistence, Message: message, Cause: cause}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrorCodePersistence for errors the taxonomy does not know about.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodePersistence
}

// IsRetryable reports whether the failed operation is known not to have been
// applied and may be attempted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
