package service

import (
	"errors"
	"fmt"
)

// Code classifies a service failure for the transport layer.
type Code string

const (
	CodeValidation         Code = "VALIDATION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeNotRequested       Code = "NOT_REQUESTED"
	CodeInvalidOrExpired   Code = "INVALID_OR_EXPIRED"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"
	CodeUpstreamFailure    Code = "UPSTREAM_FAILURE"
)

// Error is returned by every service operation. Message is safe to show to clients;
// Err carries the underlying cause for logging.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func upstream(message string, err error) *Error {
	return newError(CodeUpstreamFailure, message, err)
}

// CodeOf extracts the Code of err, or UPSTREAM_FAILURE for foreign errors.
func CodeOf(err error) Code {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeUpstreamFailure
}
