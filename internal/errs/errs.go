package errs

import (
	"errors"
	"net/http"
)

// Code is a suite error code.
type Code string

const (
	// InvalidArgument covers startup/config problems such as an unknown browser name.
	InvalidArgument Code = "invalid_argument"
	// NotFound covers lookups against fixed tables (device presets, scenarios).
	NotFound Code = "not_found"
	// InvalidFormat covers page text that does not parse (e.g. prices).
	InvalidFormat Code = "invalid_format"
	// Interaction covers browser-side failures: missing selector, timeout, detached element.
	Interaction Code = "interaction"
	// AssertionFailed is an observed page state that differs from the expected one.
	AssertionFailed  Code = "assertion_failed"
	PermissionDenied Code = "permission_denied"
	Unavailable      Code = "unavailable"
	Internal         Code = "internal"
)

// Error is a coded suite error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Err
	}
	return false
}

// MessageOf returns the message of the outermost coded error.
// Untyped errors return "internal error" so raw engine output stays out of reports.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument, InvalidFormat:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
