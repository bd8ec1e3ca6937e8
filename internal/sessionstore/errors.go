package sessionstore

import (
	"errors"
	"fmt"
)

type notFoundError struct{ path string }

func (e notFoundError) Error() string { return "session not found: " + e.path }

// IsNotFound reports whether err indicates a missing session file.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

type tooLargeError struct {
	path  string
	size  int64
	limit int64
}

func (e tooLargeError) Error() string {
	return fmt.Sprintf("session file too large: %s is %.2f MB (limit %.2f MB)",
		e.path, float64(e.size)/(1<<20), float64(e.limit)/(1<<20))
}

// IsTooLarge reports whether err indicates a session over the size cap.
func IsTooLarge(err error) bool {
	var e tooLargeError
	return errors.As(err, &e)
}

type corruptError struct {
	path string
	err  error
}

func (e corruptError) Error() string { return "corrupted session file " + e.path + ": " + e.err.Error() }
func (e corruptError) Unwrap() error { return e.err }

// IsCorrupt reports whether err indicates an unparseable session file.
func IsCorrupt(err error) bool {
	var e corruptError
	return errors.As(err, &e)
}

type validationError struct{ msg string }

func (e validationError) Error() string { return "invalid session data: " + e.msg }

func errValidation(format string, args ...any) error {
	return validationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err indicates a structurally invalid record.
func IsValidation(err error) bool {
	var e validationError
	return errors.As(err, &e)
}
