package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind is the stable failure classification returned to API callers.
// Retry guidance:
//   - InsufficientInventory / Conflict: safe to retry after re-reading state
//   - Validation / ArithmeticMismatch: never retry without changing input
//   - NegativeInventory: always fatal, never overridable
type ErrorKind string

const (
	ErrorKindValidation            ErrorKind = "VALIDATION"
	ErrorKindNotFound              ErrorKind = "NOT_FOUND"
	ErrorKindInsufficientInventory ErrorKind = "INSUFFICIENT_INVENTORY"
	ErrorKindReferentialIntegrity  ErrorKind = "REFERENTIAL_INTEGRITY"
	ErrorKindArithmeticMismatch    ErrorKind = "ARITHMETIC_MISMATCH"
	ErrorKindNegativeInventory     ErrorKind = "NEGATIVE_INVENTORY"
	ErrorKindConflict              ErrorKind = "CONFLICT"
	ErrorKindInternal              ErrorKind = "INTERNAL"
)

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func newAppErrorf(kind ErrorKind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindValidation, format, args...)
}

func NotFoundErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindNotFound, format, args...)
}

func InsufficientInventoryErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindInsufficientInventory, format, args...)
}

func ReferentialIntegrityErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindReferentialIntegrity, format, args...)
}

func ArithmeticMismatchErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindArithmeticMismatch, format, args...)
}

func NegativeInventoryErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindNegativeInventory, format, args...)
}

func ConflictErrorf(format string, args ...interface{}) *AppError {
	return newAppErrorf(ErrorKindConflict, format, args...)
}

// KindOf classifies any error for the API layer. Unrecognized errors map to Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindInternal
}

// IsRetryable reports whether a caller may retry after re-reading current state.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrorKindInsufficientInventory, ErrorKindConflict:
		return true
	}
	return false
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
