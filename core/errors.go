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

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when a requested object does not exist (or is not visible).
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string { return err.message }

// PermissionError is returned when the acting user may not perform an operation.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) error {
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string { return err.message }

// ConflictError is returned when an operation clashes with the current state of the data.
type ConflictError struct {
	message string
}

func NewConflictError(msg string) error {
	return &ConflictError{message: msg}
}

func (err ConflictError) Error() string { return err.message }

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsPermission(err error) bool {
	_, ok := errors.Cause(err).(*PermissionError)
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
