package domain

import "errors"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrStatusUnchanged = errors.New("status already set")
	ErrDeadlineInPast  = errors.New("deadline is in the past")
	ErrInvalidDeadline = errors.New("invalid deadline")
	ErrInvalidOwner    = errors.New("invalid owner id")

	// ErrPermanent marks failures that must not be retried.
	ErrPermanent = errors.New("permanent failure")
)

type permanentError struct {
	err error
}

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() []error { return []error{e.err, ErrPermanent} }

// Permanent wraps err so that IsPermanent reports true for it and for
// anything wrapping it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
