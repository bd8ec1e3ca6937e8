package manager

import (
	"errors"
	"fmt"
)

// notFoundError signals a missing model file.
type notFoundError struct{ path string }

func (e notFoundError) Error() string { return "model file not found: " + e.path }

// ErrNotFound returns an error for a model path that does not exist.
func ErrNotFound(path string) error { return notFoundError{path: path} }

// IsNotFound reports whether err indicates a missing model file.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// invalidFormatError signals a file the engine cannot accept (wrong
// extension, a directory, an unusable upload name).
type invalidFormatError struct {
	path   string
	reason string
}

func (e invalidFormatError) Error() string {
	return fmt.Sprintf("invalid model file %s: %s", e.path, e.reason)
}

// ErrInvalidFormat constructs an invalidFormatError.
func ErrInvalidFormat(path, reason string) error {
	return invalidFormatError{path: path, reason: reason}
}

// IsInvalidFormat reports whether err indicates an unusable model file.
func IsInvalidFormat(err error) bool {
	var e invalidFormatError
	return errors.As(err, &e)
}

// noModelLoadedError is returned by generation calls while unloaded.
type noModelLoadedError struct{}

func (noModelLoadedError) Error() string { return "no model is loaded" }

// ErrNoModelLoaded constructs a noModelLoadedError.
func ErrNoModelLoaded() error { return noModelLoadedError{} }

// IsNoModelLoaded reports whether err indicates generation without a model.
func IsNoModelLoaded(err error) bool {
	var e noModelLoadedError
	return errors.As(err, &e)
}

// validationError signals out-of-range generation parameters.
type validationError struct{ err error }

func (e validationError) Error() string { return "invalid generation parameters: " + e.err.Error() }
func (e validationError) Unwrap() error { return e.err }

// IsValidation reports whether err indicates rejected parameters.
func IsValidation(err error) bool {
	var e validationError
	return errors.As(err, &e)
}

// engineError wraps a failure raised by the inference engine. hint carries
// the memory-exhaustion heuristic, if it matched; it is advisory only.
type engineError struct {
	op   string
	err  error
	hint string
}

func (e engineError) Error() string {
	msg := "engine " + e.op + " failed: " + e.err.Error()
	if e.hint != "" {
		msg += " (" + e.hint + ")"
	}
	return msg
}

func (e engineError) Unwrap() error { return e.err }

func newEngineError(op string, err error) error {
	return engineError{op: op, err: err, hint: ClassifyMemoryHint(err)}
}

// IsEngineFailure reports whether err was raised by the engine.
func IsEngineFailure(err error) bool {
	var e engineError
	return errors.As(err, &e)
}

// EngineHint returns the advisory hint attached to an engine failure, if any.
func EngineHint(err error) string {
	var e engineError
	if errors.As(err, &e) {
		return e.hint
	}
	return ""
}

// dependencyUnavailableError signals a missing engine runtime (binary built
// without llama support) so callers can report it distinctly.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

func errPanic(op string, r any) error {
	return fmt.Errorf("engine panic during %s: %v", op, r)
}
