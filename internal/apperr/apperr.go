// Package apperr defines the error kinds surfaced to API clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable error category.
type Kind string

const (
	KindInvalidParameter Kind = "InvalidParameter"
	KindUnauthorized     Kind = "Unauthorized"
	KindForbidden        Kind = "Forbidden"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindUnexpected       Kind = "Unexpected"
)

// Error carries a kind, a client-facing message and, for validation errors,
// the offending field. Err holds the internal cause and is never sent to clients.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidParameter(field, message string) *Error {
	return &Error{Kind: KindInvalidParameter, Field: field, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// Unexpected wraps an infrastructure failure. The cause is logged server-side only.
func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// As extracts an *Error from err. Anything that is not an *Error is treated as
// an Unexpected failure.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Unexpected(MsgSomethingWentWrong, err)
}

// KindOf returns the kind of err, defaulting to Unexpected.
func KindOf(err error) Kind {
	return As(err).Kind
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindInvalidParameter:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
