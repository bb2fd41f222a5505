// Package apperr provides the typed errors domain services return.
// httpkit.HandleError maps each Kind to a status code and response shape.
package apperr

import (
	"errors"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the zero value; HandleError treats it as internal.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a duplicate or a state that forbids the change.
	// Responses carry the EXISTS status with the existing record as details.
	KindConflict
	// KindForbidden indicates the action is not allowed for the caller's role.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Details is echoed to the client, e.g. the duplicate record on a conflict.
	Details interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal, KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithCause sets the underlying error, kept for logs and errors.Is.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithDetails attaches a payload returned to the client.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if the chain holds no *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
