// Package errors provides the structured error type used across the
// longevity-map platform. Every layer (domain, application, infrastructure,
// interfaces) carries failures as *AppError so that HTTP responses, logs, and
// metrics agree on a single error taxonomy.
package errors

import (
	"errors"
	"fmt"
)

// AppError is the canonical platform error. It satisfies the standard error
// interface and supports errors.Is / errors.As / errors.Unwrap across layers.
//
//	return errors.New(errors.CodeSourceFetchFailed, "pubmed esearch failed")
//	return errors.Wrap(err, errors.CodeDatabaseError, "insert gap")
type AppError struct {
	// Code is the typed error code identifying the failure category.
	Code ErrorCode

	// Message is the primary human-readable description, suitable for API
	// responses.
	Message string

	// Detail carries supplementary context (entity IDs, query parameters)
	// that aids debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when
// Detail is empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so errors.Is and errors.As traverse the
// full chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of e with Detail set. Safe on nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError wrapping err. Wrap returns nil when err is nil
// so it can be used inline on fallible calls. When err is already an
// *AppError and code is CodeUnknown, the original code is preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain contains a CodeNotFound AppError.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain,
// CodeUnknown when none is present, CodeOK for nil.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Convenience factories for the most common conditions.

// NotFound constructs a CodeNotFound AppError naming the missing entity.
func NotFound(entity, id string) *AppError {
	return Newf(CodeNotFound, "%s %s not found", entity, id)
}

// Validation constructs a CodeValidation AppError.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// InvalidParam constructs a CodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return New(CodeBadRequest, message)
}

// Internal constructs a CodeInternal AppError. Always log the underlying
// cause alongside.
func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

// Conflict constructs a CodeConflict AppError.
func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

// Unavailable constructs a CodeServiceUnavailable AppError.
func Unavailable(message string) *AppError {
	return New(CodeServiceUnavailable, message)
}
