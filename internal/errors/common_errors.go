package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Upstream fetch taxonomy. All four are recoverable and surface as NotFound.
	ErrTypeTransport     ErrorType = "TRANSPORT"
	ErrTypeDecode        ErrorType = "DECODE"
	ErrTypeFieldNotFound ErrorType = "FIELD_NOT_FOUND"
	ErrTypeOutOfRange    ErrorType = "OUT_OF_RANGE"

	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
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

// Recoverable reports whether the error belongs to the upstream fetch taxonomy
func (e *AppError) Recoverable() bool {
	switch e.Type {
	case ErrTypeTransport, ErrTypeDecode, ErrTypeFieldNotFound, ErrTypeOutOfRange:
		return true
	}
	return false
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

// NewTransportError creates a network or timeout error
func NewTransportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeTransport, message, cause)
}

// NewDecodeError creates an error for a payload that does not parse
func NewDecodeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDecode, message, cause)
}

// NewFieldNotFoundError creates an error for a parsed payload missing the expected field
func NewFieldNotFoundError(field string) *AppError {
	return NewAppError(ErrTypeFieldNotFound, fmt.Sprintf("%s not found", field), nil).
		WithContext("field", field)
}

// NewOutOfRangeError creates an error for an implausible value
func NewOutOfRangeError(field string, value, min, max float64) *AppError {
	return NewAppError(ErrTypeOutOfRange,
		fmt.Sprintf("%s value %.0f outside [%.0f, %.0f]", field, value, min, max), nil).
		WithContext("field", field).
		WithContext("value", value)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
