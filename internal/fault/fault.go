// Package fault defines the error taxonomy shared by every tier.
// A fault carries an explicit Kind; the mapping from kind to HTTP status
// lives here and nowhere else.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a fault.
type Kind int

const (
	// KindInternal is an unexpected failure inside the tier.
	KindInternal Kind = iota
	// KindValidation is a malformed identifier or a missing required field.
	KindValidation
	// KindNotFound is a well-formed identifier with no matching record.
	KindNotFound
	// KindDownstream is a failed forwarding call or a fault reported by the next tier.
	KindDownstream
	// KindSimulatedRuntime is the generic fault raised by error injection.
	KindSimulatedRuntime
	// KindSimulatedState is the state-conflict fault raised by error injection.
	KindSimulatedState
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDownstream:
		return "downstream"
	case KindSimulatedRuntime:
		return "simulated_runtime"
	case KindSimulatedState:
		return "simulated_state"
	default:
		return "internal"
	}
}

// Code returns the machine-readable code written in error bodies.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindDownstream:
		return "DOWNSTREAM_ERROR"
	case KindSimulatedRuntime:
		return "SIMULATED_RUNTIME_ERROR"
	case KindSimulatedState:
		return "SIMULATED_STATE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps a fault kind to its transport status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDownstream:
		return http.StatusBadGateway
	case KindSimulatedState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a structured fault.
type Error struct {
	Kind    Kind
	Message string
	// Fields are extra key/values echoed into the error body (e.g. the offending id).
	Fields map[string]any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With returns the fault with an extra body field set.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// New creates a fault of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a fault of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation fault.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// NotFound creates a not-found fault.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf reports the kind of err. Errors that are not faults are internal.
func KindOf(err error) Kind {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

// Is reports whether err is a fault of the given kind.
func Is(err error, kind Kind) bool {
	var f *Error
	return errors.As(err, &f) && f.Kind == kind
}

// As extracts the fault from err, wrapping plain errors as internal faults.
func As(err error) *Error {
	var f *Error
	if errors.As(err, &f) {
		return f
	}
	return Internal("unexpected error", err)
}
