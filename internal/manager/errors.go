package manager

import "errors"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// modelNotFoundError is returned when a model id is not present in the repository.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error when a requested model id is not present in the repository.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// modelNotReadyError is returned for models that exist but failed to load or
// are being unloaded.
type modelNotReadyError struct {
	id     string
	reason string
	err    error
}

func (e modelNotReadyError) Unwrap() error { return e.err }

func (e modelNotReadyError) Error() string {
	if e.reason == "" {
		return "model not ready: " + e.id
	}
	return "model not ready: " + e.id + ": " + e.reason
}

// IsModelNotReady reports whether err indicates a model that cannot serve.
func IsModelNotReady(err error) bool {
	var e modelNotReadyError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing runtime dependency (e.g. a
// build without the model runtime) so the HTTP layer can return 503 instead
// of 500.
type dependencyUnavailableError struct {
	msg string
	err error
}

func (e dependencyUnavailableError) Error() string { return e.msg }

func (e dependencyUnavailableError) Unwrap() error { return e.err }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
