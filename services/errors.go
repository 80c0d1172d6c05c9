package services

import (
	"errors"
	"fmt"
)

// Error codes returned to API clients
const (
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeUserExists            = "USER_EXISTS"
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeRestaurantUnavailable = "RESTAURANT_UNAVAILABLE"
	CodeBelowMinimumOrder     = "BELOW_MINIMUM_ORDER"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeStatusConflict        = "STATUS_CONFLICT"
	CodeOrderLocked           = "ORDER_LOCKED"
	CodeMissingSignature      = "MISSING_SIGNATURE"
	CodeInvalidSignature      = "INVALID_SIGNATURE"
	CodeGatewayError          = "GATEWAY_ERROR"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Error is a service failure carrying an API error code
type Error struct {
	Code      string
	Message   string
	Details   interface{}
	Retryable bool
	Err       error
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

// AsError extracts a service error from err, if there is one
func AsError(err error) (*Error, bool) {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}

// ErrorCode returns the code of a service error, or INTERNAL_ERROR for anything else
func ErrorCode(err error) string {
	if serviceErr, ok := AsError(err); ok {
		return serviceErr.Code
	}
	return CodeInternalError
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func invalidInput(message string, details interface{}) *Error {
	return &Error{Code: CodeInvalidInput, Message: message, Details: details}
}

func internalError(message string, err error) *Error {
	return &Error{Code: CodeInternalError, Message: message, Err: err}
}
