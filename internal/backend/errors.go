package backend

import (
	"errors"
	"fmt"
)

// InputError reports a request the caller got wrong: a missing input, an
// unexpected data type or shape. Hosts map it to a client error.
type InputError struct {
	Input string
	Msg   string
}

func (e InputError) Error() string {
	if e.Input == "" {
		return "invalid input: " + e.Msg
	}
	return fmt.Sprintf("invalid input %s: %s", e.Input, e.Msg)
}

// NewInputError formats an InputError.
func NewInputError(input, format string, args ...any) error {
	return InputError{Input: input, Msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err wraps an InputError.
func IsInputError(err error) bool {
	var ie InputError
	return errors.As(err, &ie)
}

// UnknownBackendError is returned when a config names a backend nobody registered.
type UnknownBackendError struct{ Name string }

func (e UnknownBackendError) Error() string { return "unknown backend: " + e.Name }

// IsUnknownBackend reports whether err wraps an UnknownBackendError.
func IsUnknownBackend(err error) bool {
	var ub UnknownBackendError
	return errors.As(err, &ub)
}
