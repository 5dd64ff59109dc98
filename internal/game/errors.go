package game

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation for callers.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindAuthorization      Kind = "authorization"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindStateConflict      Kind = "state_conflict"
	KindNotFound           Kind = "not_found"
	KindInvariantViolation Kind = "invariant_violation"
)

// Error is the structured failure returned by every mutating operation.
// A rejected operation leaves the match unchanged and playable.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on Kind so callers can write errors.Is(err, game.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrAuthorization      = &Error{Kind: KindAuthorization}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrStateConflict      = &Error{Kind: KindStateConflict}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Authorizationf(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

func InsufficientFundsf(format string, args ...any) *Error {
	return newError(KindInsufficientFunds, format, args...)
}

func StateConflictf(format string, args ...any) *Error {
	return newError(KindStateConflict, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func InvariantViolationf(format string, args ...any) *Error {
	return newError(KindInvariantViolation, format, args...)
}

// KindOf reports the Kind of err. Errors outside the taxonomy are treated as
// invariant violations since they indicate a defect rather than a bad request.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInvariantViolation
}

// AsError converts any error into the structured caller-facing form.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: KindInvariantViolation, Message: err.Error()}
}
