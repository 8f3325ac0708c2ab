// Package apperr defines the stable error kinds returned by the billing engine.
package apperr

import (
	"context"
	"errors"
)

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindExhausted     Kind = "exhausted"
	KindConfiguration Kind = "configuration"
	KindUnavailable   Kind = "unavailable"
)

// Error is a domain error with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a new domain error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrValidation           = New(KindValidation, "invalid_input", "invalid input")
	ErrNotFound             = New(KindNotFound, "not_found", "not found")
	ErrResourceBusy         = New(KindConflict, "resource_busy", "table is not available")
	ErrInvalidTransition    = New(KindConflict, "invalid_transition", "operation not allowed in current session state")
	ErrAlreadyClosed        = New(KindConflict, "already_closed", "session is already closed")
	ErrItemUnavailable      = New(KindConflict, "item_unavailable", "item is not available")
	ErrInsufficientStock    = New(KindExhausted, "insufficient_stock", "insufficient stock")
	ErrPricingNotConfigured = New(KindConfiguration, "pricing_not_configured", "no active pricing for table and service type")
	ErrUnavailable          = New(KindUnavailable, "unavailable", "storage unavailable, retry later")
)

// As returns the domain error wrapped in err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err. Errors without a domain kind are treated as
// infrastructure failures.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnavailable
}

// Retryable reports whether the operation that produced err may be retried
// unchanged.
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}

// Normalize maps context expiry onto ErrUnavailable and leaves domain errors
// untouched.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &wrapped{kind: ErrUnavailable, cause: err}
	}
	return err
}

// wrapped keeps the original cause reachable while reporting as kind.
type wrapped struct {
	kind  *Error
	cause error
}

func (w *wrapped) Error() string {
	return w.kind.Message + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.kind, w.cause}
}
