// Package errors defines the application's structured error type and its codes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	ErrCodeNotFound        ErrorCode = "not_found"
	ErrCodeConflict        ErrorCode = "conflict"
	ErrCodeValidation      ErrorCode = "validation"
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	ErrCodeForbidden       ErrorCode = "forbidden"
	ErrCodeUnavailable     ErrorCode = "unavailable"
	ErrCodeInternal        ErrorCode = "internal"
	ErrCodeTimeout         ErrorCode = "timeout"
	ErrCodeCanceled        ErrorCode = "canceled"
)

// AppError is a structured application error with a code, a user-facing message and
// an optional cause. It supports errors.Is and errors.As through Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input for validation errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func newErr(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFound creates a NotFound error.
func NotFound(message string) *AppError { return newErr(ErrCodeNotFound, message) }

// NotFoundf creates a NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newErr(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Conflict creates a Conflict error.
func Conflict(message string) *AppError { return newErr(ErrCodeConflict, message) }

// Validation creates a Validation error.
func Validation(message string) *AppError { return newErr(ErrCodeValidation, message) }

// Validationf creates a Validation error with a formatted message.
func Validationf(format string, args ...any) *AppError {
	return newErr(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidationField creates a Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Unauthenticated creates an error for a missing or invalid bearer token.
func Unauthenticated(message string) *AppError { return newErr(ErrCodeUnauthenticated, message) }

// Forbidden creates an error for an authenticated caller lacking the required role.
func Forbidden(message string) *AppError { return newErr(ErrCodeForbidden, message) }

// Unavailable creates an error for a dependency that cannot be reached.
func Unavailable(message string) *AppError { return newErr(ErrCodeUnavailable, message) }

// Internal creates an Internal error.
func Internal(message string) *AppError { return newErr(ErrCodeInternal, message) }

// Wrap wraps err with an AppError, preserving the cause. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool        { return isCode(err, ErrCodeNotFound) }
func IsConflict(err error) bool        { return isCode(err, ErrCodeConflict) }
func IsValidation(err error) bool      { return isCode(err, ErrCodeValidation) }
func IsUnauthenticated(err error) bool { return isCode(err, ErrCodeUnauthenticated) }
func IsForbidden(err error) bool       { return isCode(err, ErrCodeForbidden) }
func IsUnavailable(err error) bool     { return isCode(err, ErrCodeUnavailable) }
func IsInternal(err error) bool        { return isCode(err, ErrCodeInternal) }
func IsTimeout(err error) bool         { return isCode(err, ErrCodeTimeout) }
func IsCanceled(err error) bool        { return isCode(err, ErrCodeCanceled) }

// GetCode returns the ErrorCode of err, or "" when err is not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of err, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// PublicMessage returns the user-facing message of err. Non-AppErrors get fallback.
func PublicMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
