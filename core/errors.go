package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine can surface. The taxonomy is
// uniform across in-process agents and the native execution core so callers
// see one error shape regardless of which path ran a task.
type ErrorKind string

const (
	// ErrorKindValidation marks a malformed workflow spec (cycle, unknown
	// dependency, unknown agent kind). Always fatal at construction time,
	// never retried.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindTimeout marks an attempt that did not complete within its
	// deadline. Retriable.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindTransient marks an agent-reported recoverable failure.
	// Retriable.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindPermanent marks an agent-reported non-recoverable failure.
	// Not retried regardless of remaining attempts.
	ErrorKindPermanent ErrorKind = "permanent"
	// ErrorKindCancelled marks a task aborted by cancellation. Terminal.
	ErrorKindCancelled ErrorKind = "cancelled"
	// ErrorKindDependencyFailed is the synthetic kind attached to Skipped
	// tasks, recording which dependency caused the cascade.
	ErrorKindDependencyFailed ErrorKind = "dependency_failed"
	// ErrorKindUnknownAgentKind is returned by the registry when a kind was
	// never registered.
	ErrorKindUnknownAgentKind ErrorKind = "unknown_agent_kind"
)

// Retriable reports whether failures of this kind are eligible for retry.
func (k ErrorKind) Retriable() bool {
	return k == ErrorKindTimeout || k == ErrorKindTransient
}

// Error is the structured error carried in task results and across the
// native boundary: a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an Error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error preserving the underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf classifies an arbitrary error into the taxonomy. Typed *Error values
// keep their kind; context errors map to Timeout/Cancelled; everything else
// defaults to Transient so unclassified backend failures stay retriable.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindCancelled
	}
	return ErrorKindTransient
}

// AsError normalizes an arbitrary error into a typed *Error, classifying it
// via KindOf when it is not already typed.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindOf(err), Message: err.Error(), Cause: err}
}
