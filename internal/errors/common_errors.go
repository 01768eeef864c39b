package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInputShape       ErrorType = "INPUT_SHAPE"
	ErrTypeConservation     ErrorType = "CONSERVATION"
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	ErrTypeRange            ErrorType = "RANGE"
	ErrTypeDomain           ErrorType = "DOMAIN"
	ErrTypeParsing          ErrorType = "PARSING"
	ErrTypeStorage          ErrorType = "STORAGE"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// Helper functions for common error types

// NewInputShapeError reports a series that is not daily or a missing column.
func NewInputShapeError(message string) *AppError {
	return NewAppError(ErrTypeInputShape, message, nil)
}

// NewColumnNotFoundError reports a region/column absent from a frame.
func NewColumnNotFoundError(column string, available []string) *AppError {
	return NewInputShapeError(fmt.Sprintf("column %q not found", column)).
		WithContext("column", column).
		WithContext("available", available)
}

// NewConservationError reports a failed mass-conservation check.
func NewConservationError(ratio, tolerance float64) *AppError {
	return NewAppError(ErrTypeConservation,
		fmt.Sprintf("smoothed total / raw total = %.10f, outside tolerance %g", ratio, tolerance), nil).
		WithContext("ratio", ratio).
		WithContext("tolerance", tolerance)
}

// NewInsufficientDataError reports too few valid points for a computation.
func NewInsufficientDataError(message string, have, need int) *AppError {
	return NewAppError(ErrTypeInsufficientData, message, nil).
		WithContext("have", have).
		WithContext("need", need)
}

// NewRangeError reports a requested date range outside the available span.
func NewRangeError(start, end, availStart, availEnd time.Time) *AppError {
	return NewAppError(ErrTypeRange,
		fmt.Sprintf("range %s..%s outside available %s..%s",
			start.Format(time.DateOnly), end.Format(time.DateOnly),
			availStart.Format(time.DateOnly), availEnd.Format(time.DateOnly)), nil).
		WithContext("start", start).
		WithContext("end", end)
}

// NewInvertedRangeError reports a range whose start is after its end.
func NewInvertedRangeError(start, end time.Time) *AppError {
	return NewAppError(ErrTypeRange,
		fmt.Sprintf("range start %s is after end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly)), nil)
}

// NewDomainError reports an argument outside a function's domain.
func NewDomainError(message string) *AppError {
	return NewAppError(ErrTypeDomain, message, nil)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
