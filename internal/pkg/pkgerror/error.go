package pkgerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	TypeServer     Type = iota // Server-side errors (e.g., storage or blob I/O failures).
	TypeBusiness               // Business logic errors (e.g., no dataset uploaded yet).
	TypeValidation             // Validation errors (e.g., malformed or incomplete CSV).
)

func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is a stable identifier used for mapping errors to HTTP status codes.
type Code int

const (
	CodeInternal      Code = iota // Internal or unspecified error.
	CodeInvalidFormat             // Error code for an unreadable request or file format.
	CodeInvalidInput              // Error code for input that fails validation.
	CodeNotFound                  // Error code for resource not found.
	CodeConflict                  // Error code for conflict situations (e.g., duplicate entries).
	CodeUnauthorized              // Error code for requests without a resolved identity.
	CodeForbidden                 // Error code for forbidden actions.
)

func (c Code) String() string {
	switch c {
	case CodeInvalidFormat:
		return "ERROR_CODE_INVALID_FORMAT"
	case CodeInvalidInput:
		return "ERROR_CODE_INVALID_INPUT"
	case CodeNotFound:
		return "ERROR_CODE_NOT_FOUND"
	case CodeConflict:
		return "ERROR_CODE_CONFLICT"
	case CodeUnauthorized:
		return "ERROR_CODE_UNAUTHORIZED"
	case CodeForbidden:
		return "ERROR_CODE_FORBIDDEN"
	default:
		return "ERROR_CODE_INTERNAL"
	}
}

// Error is a structured error used across the application.
//
// It can wrap an underlying error while also carrying a user-facing message,
// a high-level type, a stable error code, and optional field-level details
// (for example, the list of missing CSV columns).
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	if e.msg != "" {
		return e.msg
	}

	return "unknown error"
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Underlying Error: %v",
		e.errType.String(),
		e.code.String(),
		e.msg,
		e.err,
	)
}

// Msg returns the user-facing error message, if set.
func (e *Error) Msg() string {
	return e.msg
}

// Type returns the high-level error type.
func (e *Error) Type() Type {
	return e.errType
}

// Code returns the stable error code.
func (e *Error) Code() Code {
	return e.code
}

// Details returns the field-level details attached to the error, if any.
func (e *Error) Details() map[string]string {
	return e.details
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.code {
	case CodeInvalidFormat, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newError(err error, msg string, et Type, code Code) *Error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates a server-type error with the provided error.
func NewServer(err error) error {
	return newError(err, "internal server error", TypeServer, CodeInternal)
}

// NewStorage creates a server-type error wrapping a persistence or blob
// failure during the named operation.
func NewStorage(op string, err error) error {
	return newError(fmt.Errorf("storage %s: %w", op, err), "storage failure", TypeServer, CodeInternal)
}

// NewNotFound creates a business-type error for a missing resource.
func NewNotFound(msg string) error {
	return newError(nil, msg, TypeBusiness, CodeNotFound)
}

// NewUnauthorized creates a business-type error for an unresolved identity.
func NewUnauthorized(msg string) error {
	return newError(nil, msg, TypeBusiness, CodeUnauthorized)
}

// NewValidation creates a validation error with a message and optional
// field-level details.
func NewValidation(msg string, details map[string]string) error {
	e := newError(nil, msg, TypeValidation, CodeInvalidInput)
	e.details = details
	return e
}

// NewInvalidFormat creates a validation error for an unreadable request body.
func NewInvalidFormat(msg string) error {
	return newError(nil, msg, TypeValidation, CodeInvalidFormat)
}
