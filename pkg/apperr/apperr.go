// Package apperr is the closed error taxonomy surfaced by k-core capability
// handles. Backend errors are wrapped, never reinterpreted: the original
// failure always stays reachable through errors.Unwrap.
package apperr

import (
	"errors"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	// KindConfiguration means no usable backend could be selected for the
	// requested descriptor and build. It is never retried.
	KindConfiguration Kind = "configuration"

	// KindBackend means the underlying database, session or broker call failed.
	KindBackend Kind = "backend"

	// KindNotFound means a requested entity does not exist.
	KindNotFound Kind = "not_found"

	// KindValidation means caller input violated a precondition. No backend
	// call was attempted.
	KindValidation Kind = "validation"

	// KindInternal is a contract violation inside k-core.
	KindInternal Kind = "internal"
)

// Error is the unified error type.
type Error struct {
	Kind Kind

	// Backend names the backend involved, if any (e.g. "sqlite", "nats").
	Backend string

	// Op names the operation, if any (e.g. "session.save").
	Op string

	// Msg is a human-readable cause.
	Msg string

	// Err is the wrapped cause.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindInternal {
		return "internal error"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Backend != "" {
		b.WriteString(" [")
		b.WriteString(e.Backend)
		b.WriteString("]")
	}
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Detail returns the full message, including internal detail. Use it for
// logs, never for responses to untrusted callers.
func (e *Error) Detail() string {
	if e.Kind != KindInternal {
		return e.Error()
	}
	if e.Err != nil {
		return "internal error: " + e.Msg + ": " + e.Err.Error()
	}
	return "internal error: " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This lets callers
// match a whole class with errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Configuration returns a KindConfiguration error.
func Configuration(msg string) *Error {
	return &Error{Kind: KindConfiguration, Msg: msg}
}

// Backend wraps a failed backend call.
func Backend(backend, op string, err error) *Error {
	return &Error{Kind: KindBackend, Backend: backend, Op: op, Err: err}
}

// BackendMsg returns a KindBackend error with a message and no cause.
func BackendMsg(backend, op, msg string) *Error {
	return &Error{Kind: KindBackend, Backend: backend, Op: op, Msg: msg}
}

// NotFound returns a KindNotFound error for the named entity.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Msg: what}
}

// Validation returns a KindValidation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Internal returns a KindInternal error.
func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when the chain holds none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return is(err, KindConfiguration) }

// IsBackend reports whether err is a backend error.
func IsBackend(err error) bool { return is(err, KindBackend) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsInternal reports whether err is an internal error.
func IsInternal(err error) bool { return is(err, KindInternal) }
