package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "invalid data"
	}
	return err.Err.Error()
}

// AuthenticationError means the caller could not be identified.
type AuthenticationError struct{ msg string }

func NewAuthenticationError(msg string) error { return &AuthenticationError{msg} }
func (err AuthenticationError) Error() string  { return err.msg }

// AuthorizationError means the caller is identified but lacks the rights.
type AuthorizationError struct{ msg string }

func NewAuthorizationError(msg string) error { return &AuthorizationError{msg} }
func (err AuthorizationError) Error() string  { return err.msg }

type NotFoundError struct{ msg string }

func NewNotFoundError(msg string) error { return &NotFoundError{msg} }
func (err NotFoundError) Error() string  { return err.msg }

// ConflictError is returned when a write lost an optimistic concurrency race.
type ConflictError struct{ msg string }

func NewConflictError(msg string) error { return &ConflictError{msg} }
func (err ConflictError) Error() string  { return err.msg }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsAuthorization(err error) bool {
	_, ok := errors.Cause(err).(*AuthorizationError)
	return ok
}

func IsAuthentication(err error) bool {
	_, ok := errors.Cause(err).(*AuthenticationError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
