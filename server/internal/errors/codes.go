package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type surfaced to the browser.
type ErrorCode string

const (
	// ErrCodeUnauthenticated indicates a missing, invalid or tampered session.
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	// ErrCodeBadRequest indicates a malformed request body or parameter.
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrCodeUpstreamUnavailable indicates the reasoning backend failed.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodeTimeout indicates the upstream budget was exceeded.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeCanceled indicates the caller went away before completion.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeInternal is the catch-all for faults in this layer.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StatusClientClosedRequest is the non-standard status for a caller that
// disconnected before the response was ready.
const StatusClientClosedRequest = 499

var (
	httpStatus = map[ErrorCode]int{
		ErrCodeUnauthenticated:     http.StatusUnauthorized,
		ErrCodeBadRequest:          http.StatusBadRequest,
		ErrCodeUpstreamUnavailable: http.StatusBadGateway,
		ErrCodeTimeout:             http.StatusGatewayTimeout,
		ErrCodeRateLimitExceeded:   http.StatusTooManyRequests,
		ErrCodeCanceled:            StatusClientClosedRequest,
		ErrCodeInternal:            http.StatusInternalServerError,
	}

	// Public messages are fixed per code so nothing from upstream or from a
	// stack trace can reach the browser.
	publicMessage = map[ErrorCode]string{
		ErrCodeUnauthenticated:     "Not authenticated",
		ErrCodeBadRequest:          "Invalid request",
		ErrCodeUpstreamUnavailable: "The AI server had trouble processing your request.",
		ErrCodeTimeout:             "Request timed out.",
		ErrCodeRateLimitExceeded:   "Too many requests",
		ErrCodeCanceled:            "Request canceled",
		ErrCodeInternal:            "Internal server error",
	}
)

// APIError represents a structured error for request handling.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *APIError) WithContext(key string, value any) *APIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *APIError) GetCode() ErrorCode {
	return e.Code
}

// HTTPStatus returns the status code the error maps to.
func (e *APIError) HTTPStatus() int {
	return HTTPStatus(e.Code)
}

// PublicMessage returns the message that is safe to show to the user.
// BadRequest keeps its own message since it only describes the caller's input.
func (e *APIError) PublicMessage() string {
	if e.Code == ErrCodeBadRequest && e.Message != "" {
		return e.Message
	}
	return PublicMessage(e.Code)
}

// Convenience constructors for common error types.

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *APIError {
	return &APIError{Code: ErrCodeUnauthenticated, Message: msg}
}

// BadRequest creates a bad request error.
func BadRequest(msg string) *APIError {
	return &APIError{Code: ErrCodeBadRequest, Message: msg}
}

// UpstreamUnavailable creates an upstream unavailable error.
func UpstreamUnavailable(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeUpstreamUnavailable, Message: msg, Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Canceled creates a canceled error.
func Canceled(cause error) *APIError {
	return &APIError{Code: ErrCodeCanceled, Message: "operation canceled", Cause: cause}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an APIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return defaultCode
}

// From returns err as an APIError, classifying anything unknown as internal.
func From(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("unexpected error", err)
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code ErrorCode) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage maps a code to its fixed user-visible message.
func PublicMessage(code ErrorCode) string {
	if msg, ok := publicMessage[code]; ok {
		return msg
	}
	return publicMessage[ErrCodeInternal]
}
