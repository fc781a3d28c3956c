package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeManifestCorrupt represents a stored manifest that fails to parse
	ErrorTypeManifestCorrupt ErrorType = "MANIFEST_CORRUPT"
	// ErrorTypeNotFound represents a missing object or an empty registry
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeRemoteStep represents a host failing a cluster-wide step
	ErrorTypeRemoteStep ErrorType = "REMOTE_STEP"
	// ErrorTypeTransfer represents a file transfer that exhausted its retries
	ErrorTypeTransfer ErrorType = "TRANSFER"
	// ErrorTypeBulkLoad represents a failed bulk-loader invocation
	ErrorTypeBulkLoad ErrorType = "BULK_LOAD"
	// ErrorTypeStorage represents object store access errors
	ErrorTypeStorage ErrorType = "STORAGE"
	// ErrorTypeValidation represents invalid input or configuration values
	ErrorTypeValidation ErrorType = "VALIDATION"
	// ErrorTypeConfiguration represents configuration loading errors
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"
)

// Error is an application error carrying a category and optional context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error of the given type
func New(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Common error constructors

func NewManifestCorrupt(message string, cause error) *Error {
	return New(ErrorTypeManifestCorrupt, message, cause)
}

func NewNotFound(message string, cause error) *Error {
	return New(ErrorTypeNotFound, message, cause)
}

func NewRemoteStep(message string, cause error) *Error {
	return New(ErrorTypeRemoteStep, message, cause)
}

func NewTransfer(message string, cause error) *Error {
	return New(ErrorTypeTransfer, message, cause)
}

func NewBulkLoad(message string, cause error) *Error {
	return New(ErrorTypeBulkLoad, message, cause)
}

func NewStorage(message string, cause error) *Error {
	return New(ErrorTypeStorage, message, cause)
}

func NewValidation(message string, cause error) *Error {
	return New(ErrorTypeValidation, message, cause)
}

func NewConfiguration(message string, cause error) *Error {
	return New(ErrorTypeConfiguration, message, cause)
}

// IsType reports whether err (or any error it wraps) is an Error of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsNotFound reports whether err represents a missing object.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsManifestCorrupt reports whether err represents an unparseable manifest.
func IsManifestCorrupt(err error) bool {
	return IsType(err, ErrorTypeManifestCorrupt)
}
