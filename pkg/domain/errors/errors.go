package errors

import (
	"context"
	"errors"
)

var (
	// requested entity is not found.
	ErrMissing = errors.New("missing")

	// requested entity is found more than expected.
	ErrTooMuch = errors.New("too much")

	// the operation may succeed when retried later.
	//
	// connection loss, deadlock, serialization failure or timeouts.
	ErrTransient = errors.New("transient failure")

	// the operation will fail again for the same input.
	ErrPermanent = errors.New("permanent failure")

	// a policy or query is composed wrongly: unknown descriptor, unknown
	// instrument, wrong enumeration value.
	ErrConfiguration = errors.New("configuration error")

	// command line or request is malformed.
	ErrUsage = errors.New("bad invocation")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrConfiguration) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Transient marks err as transient.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return marked{cause: err, mark: ErrTransient}
}

// Permanent marks err as permanent.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return marked{cause: err, mark: ErrPermanent}
}

type marked struct {
	cause error
	mark  error
}

func (m marked) Error() string {
	return m.cause.Error()
}

func (m marked) Unwrap() []error {
	return []error{m.cause, m.mark}
}
