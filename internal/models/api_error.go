package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a string type for consistent error codes.
type ErrorCode string

// Predefined error codes for common API errors.
const (
	// Generic
	ErrorCodeInternalServerError ErrorCode = "internal_server_error"
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeMethodNotAllowed    ErrorCode = "method_not_allowed"

	// Validation
	ErrorCodeMissingParameter ErrorCode = "missing_parameter"
	ErrorCodeInvalidFormat    ErrorCode = "invalid_format"

	// Stats API
	ErrorCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrorCodeMalformedResponse   ErrorCode = "malformed_response"
)

type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

// Error makes APIError implement the error interface.
func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e APIError) Unwrap() error {
	return e.Err
}

// NewAPIError is a constructor for APIError.
func NewAPIError(code ErrorCode, message string, details any, statusCode int) APIError {
	return APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: statusCode,
	}
}

// AsAPIError maps any error onto an APIError, defaulting to an internal error.
func AsAPIError(err error) APIError {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	apiErr = NewAPIError(ErrorCodeInternalServerError, err.Error(), nil, http.StatusInternalServerError)
	apiErr.Err = err
	return apiErr
}

// IsUpstreamFailure reports whether err came from the stats API, either
// because it could not be reached or because it answered with garbage.
func IsUpstreamFailure(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrorCodeUpstreamUnavailable || apiErr.Code == ErrorCodeMalformedResponse
}
