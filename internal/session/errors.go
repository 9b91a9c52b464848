package session

import (
	"errors"
	"fmt"
)

// ValidationError rejects a command argument. The message names the field so
// callers can surface it next to the right input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func errValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateError rejects a command that does not apply to the current
// session state, such as logging a set with no active session.
type InvalidStateError struct {
	Op      string
	Message string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func errInvalidState(op, message string) *InvalidStateError {
	return &InvalidStateError{Op: op, Message: message}
}

// PersistenceError wraps a storage failure that surfaced through a command.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
