package llm

import "errors"

// TransientError is a failure that may succeed if the call is repeated
// later, such as exhausted retries against a rate-limited backend.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

func NewTransientError(err error) error { return &TransientError{err: err} }

// FatalError is a failure that repeating the call will not fix.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

func NewFatalError(err error) error { return &FatalError{err: err} }

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
