// Package sanderr defines the error taxonomy shared by the sandbox
// lifecycle components.
package sanderr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a sandbox failure.
type Kind string

// Failure kinds surfaced to callers.
const (
	// PortNotAvailable means an explicitly requested port could not be bound.
	PortNotAvailable Kind = "PORT_NOT_AVAILABLE"

	// LockFailed means the lock file for a port is already held elsewhere.
	LockFailed Kind = "LOCK_FAILED"

	// PortAcquisitionFailed means the ephemeral-port retry budget was
	// exhausted; the error carries every attempt's failure.
	PortAcquisitionFailed Kind = "PORT_ACQUISITION_FAILED"

	// RunFailed means the node never reported ready within the polling budget.
	RunFailed Kind = "RUN_FAILED"

	// TearDownFailed means one or more teardown steps failed; the error
	// carries every step's failure.
	TearDownFailed Kind = "TEARDOWN_FAILED"
)

// Error is a sandbox failure with a structured kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that wraps an underlying cause. The cause stays
// reachable through Unwrap and is part of the message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Err:     err,
	}
}

// Aggregate creates an Error carrying several independent failures. Every
// failure's message appears in the aggregate message, in the order given,
// and every failure stays reachable through Unwrap.
func Aggregate(kind Kind, msg string, errs []error) *Error {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %s", msg, strings.Join(parts, "; ")),
		Err:     errors.Join(errs...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" if err carries no kind.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// HasKind reports whether err or any error it wraps has the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return false
		}
		if se.Kind == kind {
			return true
		}
		err = se.Err
	}
	return false
}
