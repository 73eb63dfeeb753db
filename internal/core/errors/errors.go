package errors

import (
	"errors"
	"fmt"
)

// Domain errors for the notification pipeline. None of these is fatal to a
// session: connection errors are recovered by backoff reconnect, protocol
// errors drop the offending frame, permission errors skip a single surface.
var (
	// Connection lifecycle
	ErrConnectionClosed = errors.New("connection is closed")
	ErrAlreadyConnected = errors.New("connection already established")
	ErrDialFailed       = errors.New("failed to open socket")

	// Protocol
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnknownFrameType = errors.New("unknown frame type")

	// Delivery
	ErrPermissionDenied       = errors.New("notification permission not granted")
	ErrPushSubscriptionGone   = errors.New("push subscription no longer valid")
	ErrPushSubscriptionExists = errors.New("push subscription already registered")
	ErrSubscriptionNotFound   = errors.New("push subscription not found")

	// Generic
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal server error")
)

// AppError wraps errors with additional context for HTTP responses.
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ProtocolError describes a frame that could not be decoded or classified.
// It is logged and the frame dropped; it never propagates into the socket's
// read loop.
type ProtocolError struct {
	Reason string
	Raw    []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return ErrMalformedFrame
}
