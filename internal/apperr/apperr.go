// Package apperr defines the error taxonomy shared by the authentication
// provider and the HTTP handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the purpose of choosing an HTTP status and a
// user-facing message.
type Kind int

const (
	// Internal is an unexpected downstream failure. The cause is logged, never
	// returned to the caller.
	Internal Kind = iota
	// Configuration is a missing required startup or runtime setting.
	Configuration
	// Validation is malformed caller input.
	Validation
	// Authentication is bad credentials or a missing session.
	Authentication
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	default:
		return "internal"
	}
}

// Error carries a Kind, a message that is safe to show to the caller, and an
// optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an *Error that keeps err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain. Errors that
// carry no Kind are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the user-safe message of the first *Error in err's chain,
// or fallback when there is none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
