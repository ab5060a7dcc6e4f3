// Package middleware provides HTTP middleware for the service layer.
//
// This file contains error types and constructors previously in
// infrastructure/errors, inlined here because middleware is the sole consumer.
package middleware

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code.
type ErrorCode string

// ErrCodeInternal is the only code middleware itself raises: a recovered panic.
const ErrCodeInternal ErrorCode = "SVC_5001"

// ServiceError represents a structured error with code, message, and HTTP status.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// wrapServiceError wraps an existing error with a ServiceError.
func wrapServiceError(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// errInternal creates an internal server error.
func errInternal(message string, err error) *ServiceError {
	return wrapServiceError(ErrCodeInternal, message, http.StatusInternalServerError, err)
}
