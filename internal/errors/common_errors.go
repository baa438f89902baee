package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNavigation ErrorType = "NAVIGATION"
	ErrTypeTiming     ErrorType = "TIMING"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeFormat     ErrorType = "FORMAT"
	ErrTypeDataShape  ErrorType = "DATA_SHAPE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeCanceled   ErrorType = "CANCELED"
)

// AppError represents an application-specific error
type AppError struct {
	Type      ErrorType
	Step      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Retryable bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e == nil {
		return "unknown error"
	}
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Step != "" {
		prefix = fmt.Sprintf("[%s] %s:", e.Type, e.Step)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
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

// NewNavigationError reports that the portal did not present the expected
// page structure at step. It is never retried.
func NewNavigationError(step, message string, cause error) *AppError {
	e := NewAppError(ErrTypeNavigation, message, cause)
	e.Step = step
	return e
}

// NewTimingError reports that an expected window or element has not shown up
// yet. Timing errors are retryable.
func NewTimingError(step, message string) *AppError {
	e := NewAppError(ErrTypeTiming, message, nil)
	e.Step = step
	e.Retryable = true
	return e
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error, retryable bool) *AppError {
	e := NewAppError(ErrTypeNetwork, message, cause)
	e.Retryable = retryable
	return e
}

// NewFormatError creates an error for content that is not tabular text
func NewFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFormat, message, cause)
}

// NewDataShapeError creates an error for a table that does not match the
// configured labels or holds values that cannot be cleaned
func NewDataShapeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataShape, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewStorageError creates an error for a failed local file write
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewCanceledError reports that the caller's context ended while step was
// running. It is never retried.
func NewCanceledError(step string, cause error) *AppError {
	e := NewAppError(ErrTypeCanceled, "canceled", cause)
	e.Step = step
	return e
}

// HasType reports whether any AppError in err's chain has the given type.
func HasType(err error, errType ErrorType) bool {
	for _, e := range chain(err) {
		if e.Type == errType {
			return true
		}
	}
	return false
}

// IsRetryable checks if an error is retryable. Only the outermost AppError
// decides, so an escalated error stays fatal even when it wraps a timing one.
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetErrorType returns the type of the outermost AppError in err, or "" when
// err carries none.
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// chain collects every AppError reachable from err, following both single
// and joined wrapping.
func chain(err error) []*AppError {
	var out []*AppError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if appErr, ok := e.(*AppError); ok {
			out = append(out, appErr)
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}
