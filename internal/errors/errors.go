// Package errors defines the application error taxonomy: six kinds,
// each with its own HTTP-equivalent code, so handlers never need to
// interpret error strings to decide a status code.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode defines the error code type
type ErrorCode int

// System error codes, grouped by kind
const (
	// Common error codes (1000-1999)
	ErrBadRequest         ErrorCode = 1000
	ErrUnauthorized       ErrorCode = 1001
	ErrForbidden          ErrorCode = 1002
	ErrNotFound           ErrorCode = 1003
	ErrMethodNotAllowed   ErrorCode = 1004
	ErrConflict           ErrorCode = 1005
	ErrTooManyRequests    ErrorCode = 1006
	ErrInternalServer     ErrorCode = 1007
	ErrServiceUnavailable ErrorCode = 1008
	ErrTimeout            ErrorCode = 1009
	ErrValidation         ErrorCode = 1010

	// Validation errors (3000-3099): malformed or out-of-range input.
	ErrValidationField ErrorCode = 3000

	// NotFound errors (3100-3199): referenced entity does not exist.
	ErrCollectionNotFound  ErrorCode = 3100
	ErrPipelineNotFound    ErrorCode = 3101
	ErrSessionNotFoundCode ErrorCode = 3102
	ErrTemplateNotFound    ErrorCode = 3103
	ErrModelNotFound       ErrorCode = 3104

	// Configuration errors (3200-3299): a pipeline/template is internally
	// inconsistent (e.g. default pipeline without a collection).
	ErrConfigurationInvalid ErrorCode = 3200

	// LLMProvider errors (4000-4099): an upstream model API failed or
	// returned something the pipeline cannot use.
	ErrLLMProviderUnavailable ErrorCode = 4000
	ErrLLMProviderRateLimited ErrorCode = 4001
	ErrLLMProviderBadResponse ErrorCode = 4002

	// Storage errors (4100-4199): the vector store or document store failed.
	ErrStorageUnavailable ErrorCode = 4100
	ErrStorageDimensionMismatch ErrorCode = 4101

	// Cancellation (5000-5099): the caller's context was cancelled or its
	// deadline exceeded mid-pipeline.
	ErrCancelled ErrorCode = 5000
	ErrDeadlineExceeded ErrorCode = 5001
)

// AppError defines the application error structure
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Details  any       `json:"details,omitempty"`
	HTTPCode int       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("error code: %d, error message: %s", e.Code, e.Message)
}

// WithDetails adds error details
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:     ErrBadRequest,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:     ErrUnauthorized,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:     ErrForbidden,
		Message:  message,
		HTTPCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:     ErrNotFound,
		Message:  message,
		HTTPCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:     ErrConflict,
		Message:  message,
		HTTPCode: http.StatusConflict,
	}
}

// NewInternalServerError creates an internal server error
func NewInternalServerError(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:     ErrInternalServer,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewValidationError creates a Validation-kind error.
func NewValidationError(field, reason string) *AppError {
	return &AppError{
		Code:     ErrValidationField,
		Message:  fmt.Sprintf("%s: %s", field, reason),
		HTTPCode: http.StatusBadRequest,
	}
}

// NewCollectionNotFoundError creates a NotFound-kind error for a collection.
func NewCollectionNotFoundError(id string) *AppError {
	return &AppError{
		Code:     ErrCollectionNotFound,
		Message:  fmt.Sprintf("collection not found: %s", id),
		HTTPCode: http.StatusNotFound,
	}
}

// NewPipelineNotFoundError creates a NotFound-kind error for a pipeline config.
func NewPipelineNotFoundError(id string) *AppError {
	return &AppError{
		Code:     ErrPipelineNotFound,
		Message:  fmt.Sprintf("pipeline not found: %s", id),
		HTTPCode: http.StatusNotFound,
	}
}

// NewTemplateNotFoundError creates a NotFound-kind error for a prompt template.
func NewTemplateNotFoundError(id string) *AppError {
	return &AppError{
		Code:     ErrTemplateNotFound,
		Message:  fmt.Sprintf("prompt template not found: %s", id),
		HTTPCode: http.StatusNotFound,
	}
}

// NewModelNotFoundError creates a NotFound-kind error for a registered model.
func NewModelNotFoundError(id string) *AppError {
	return &AppError{
		Code:     ErrModelNotFound,
		Message:  fmt.Sprintf("model not found: %s", id),
		HTTPCode: http.StatusNotFound,
	}
}

// NewConfigurationError creates a Configuration-kind error: the
// pipeline/template/collection triple is internally inconsistent.
func NewConfigurationError(reason string) *AppError {
	return &AppError{
		Code:     ErrConfigurationInvalid,
		Message:  reason,
		HTTPCode: http.StatusUnprocessableEntity,
	}
}

// NewLLMProviderError creates an LLMProvider-kind error.
func NewLLMProviderError(code ErrorCode, message string) *AppError {
	httpCode := http.StatusBadGateway
	if code == ErrLLMProviderRateLimited {
		httpCode = http.StatusTooManyRequests
	}
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

// NewStorageError creates a Storage-kind error: vector store or
// document store failure.
func NewStorageError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: http.StatusServiceUnavailable,
	}
}

// NewCancellationError creates a Cancellation-kind error: the caller's
// context was cancelled or its deadline was exceeded mid-pipeline.
func NewCancellationError(deadlineExceeded bool) *AppError {
	code := ErrCancelled
	message := "request cancelled"
	if deadlineExceeded {
		code = ErrDeadlineExceeded
		message = "request deadline exceeded"
	}
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: http.StatusGatewayTimeout,
	}
}

// IsAppError checks if the error is an AppError type
func IsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
