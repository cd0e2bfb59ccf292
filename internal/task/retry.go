package task

import "errors"

// permanentError marks a handler failure as not worth retrying. Handler
// errors are treated as transient by default, because handlers are
// idempotent and re-execution is cheap relative to losing work; a handler
// that knows a failure will recur (bad input, unsupported file) opts out
// with MarkPermanent.
type permanentError struct {
	err error
}

// Error implements the error interface.
func (e *permanentError) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *permanentError) Unwrap() error {
	return e.err
}

// MarkPermanent wraps err so the engine fails the task immediately instead
// of consuming a retry. Returns nil for a nil error.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked
// permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
