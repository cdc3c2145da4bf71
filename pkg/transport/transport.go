// Package transport defines the narrow seam between the reconciliation
// engine and the backend: one Sender accepting structured operations and
// returning either a success payload or a typed failure.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
)

// Code classifies failure categories surfaced to the editing UI.
type Code string

const (
	// CodeValidation: a required field is missing or malformed. Raised
	// before any operation is dispatched.
	CodeValidation Code = "validation"
	// CodeNotFound: the target entity was deleted remotely since load.
	CodeNotFound Code = "not_found"
	// CodeConflict: reserved for concurrent-edit detection; the engine
	// currently runs last-writer-wins and never raises it itself.
	CodeConflict Code = "conflict"
	// CodeTransport: network or timeout failure. Not retried
	// automatically; retrying a non-idempotent create could duplicate.
	CodeTransport Code = "transport"
)

// Error carries a failure code plus the operation context it occurred in,
// preserving the original cause via Unwrap.
type Error struct {
	Code    Code
	Message string
	Op      mutation.OpKind
	Entity  mutation.EntityType
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Op, e.Entity, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New wraps cause with a code and message.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// NewOp wraps cause with full operation context.
func NewOp(code Code, op mutation.Op, cause error) *Error {
	return &Error{Code: code, Op: op.Kind, Entity: op.Entity, cause: cause}
}

// Validation builds a pre-dispatch validation failure.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NotFound builds a missing-entity failure.
func NotFound(entity mutation.EntityType, message string) *Error {
	return &Error{Code: CodeNotFound, Entity: entity, Message: message}
}

// CodeOf extracts the failure code, defaulting to CodeTransport for errors
// raised outside this package.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeTransport
}

// Sender dispatches one operation. Each operation kind maps 1:1 to a
// transport call; nested creates return the created children's server ids
// in the same shape as the request's nesting.
type Sender interface {
	Send(ctx context.Context, op mutation.Op) (*mutation.Result, error)
}
