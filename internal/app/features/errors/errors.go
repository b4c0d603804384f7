// internal/app/features/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a failure the client is allowed to see.
type Kind string

const (
	KindAuthorization  Kind = "authorization"
	KindAuthentication Kind = "authentication"
	KindState          Kind = "state"
	KindConflict       Kind = "conflict"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// Error is a client-facing failure. Message is what the client reads;
// Errors, when set, lists every individual problem and Message is their
// comma-joined form.
type Error struct {
	Kind    Kind
	Message string
	Errors  []string
	Err     error // underlying cause, never rendered
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, &Error{Kind: KindConflict}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func newList(kind Kind, msgs []string) *Error {
	return &Error{Kind: kind, Message: strings.Join(msgs, ", "), Errors: msgs}
}

// Authorization reports a caller that lacks a privilege.
func Authorization(msg string) *Error { return newError(KindAuthorization, msg) }

// Authentication reports a missing session or bad credentials.
func Authentication(msg string) *Error { return newError(KindAuthentication, msg) }

// State reports a request that is not allowed in the caller's current state.
func State(msg string) *Error { return newError(KindState, msg) }

// Conflict reports a uniqueness violation.
func Conflict(msg string) *Error { return newError(KindConflict, msg) }

// Conflicts is Conflict with the message also listed under errors.
func Conflicts(msgs ...string) *Error { return newList(KindConflict, msgs) }

// Validation reports one or more rejected fields.
func Validation(msgs ...string) *Error { return newList(KindValidation, msgs) }

// NotFound reports a missing resource.
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// Internal wraps err as an internal failure. Internal errors are logged
// and rendered with a generic message.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
