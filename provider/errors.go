package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error wraps a failure from the upstream API with enough information to
// decide whether retrying is worthwhile.
type Error struct {
	// Transient marks failures that may succeed on retry, such as rate
	// limits, timeouts and 5xx responses.
	Transient bool

	// Status is the HTTP status code when one is known, zero otherwise.
	Status int

	Inner error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("provider: %s failure (status %d): %v", kind, e.Status, e.Inner)
	}
	return fmt.Sprintf("provider: %s failure: %v", kind, e.Inner)
}

func (e *Error) Unwrap() error { return e.Inner }

// Transient wraps err as a retryable provider error.
func Transient(status int, err error) error {
	return &Error{Transient: true, Status: status, Inner: err}
}

// Permanent wraps err as a non-retryable provider error.
func Permanent(status int, err error) error {
	return &Error{Transient: false, Status: status, Inner: err}
}

// IsTransient reports whether err should be retried. Raw network errors
// and deadline expiries count as transient even when they were never
// classified; context cancellation never does.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe.Transient
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
