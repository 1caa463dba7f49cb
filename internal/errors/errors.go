// Package errors defines the stable error codes shared by the orchestration
// and tracking packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// VCSFailure indicates the synchronization layer failed while refreshing or walking a project.
	// Fatal to the change-set collection call.
	VCSFailure ErrorCode = "VCS_FAILURE"
	// DownloadFailed indicates the remote server could not be reached or answered with an error.
	// Recoverable by falling back to cached server issues.
	DownloadFailed ErrorCode = "DOWNLOAD_FAILED"
	// Cancelled indicates a wait was interrupted before every task reached a terminal state
	Cancelled ErrorCode = "CANCELLED"
	// ConfigInvalid indicates a malformed configuration or declaration file
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// NotFound indicates a missing job, project or file entry
	NotFound ErrorCode = "NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error carries a stable code, a human message and an optional cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err's chain contains an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.cause
	}
	return false
}
