// Package apperr defines the error kinds shared by the domain services.
//
// Services return *Error values built with the constructors below; the HTTP
// layer matches them with errors.Is against the Err* sentinels and picks a
// status code. Storage errors are wrapped with fmt.Errorf and fall through as
// internal errors.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrInvalidState  = errors.New("invalid state")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
)

// Error carries a user-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(ErrValidation, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return newf(ErrAuthorization, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return newf(ErrInvalidState, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(ErrForbidden, format, args...)
}

// Message returns the user-facing text of err if it is an *Error, otherwise fallback.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
