package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors making up the transfer error taxonomy.
// The orchestrator propagates these unchanged; the scheduler is the only
// layer that catches them, classifies them, and keeps going.
var (
	// ErrInsufficientFunds signals a balance-rule violation on the source leg
	ErrInsufficientFunds = errors.New("insufficient account balance")

	// ErrServiceUnavailable signals a transient infrastructure failure in a
	// ledger collaborator
	ErrServiceUnavailable = errors.New("ledger service unavailable")

	// ErrAccountNotFound signals an account id that resolves to nothing in
	// its ledger
	ErrAccountNotFound = errors.New("account not found")
)

// ValidationError is a malformed or semantically invalid request.
// It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError builds a ValidationError from a format string
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind buckets any error into the four-kind taxonomy used for
// execution history and operator diagnosis
type ErrorKind string

const (
	ErrorKindValidation         ErrorKind = "VALIDATION"
	ErrorKindInsufficientFunds  ErrorKind = "INSUFFICIENT_FUNDS"
	ErrorKindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	ErrorKindUnexpected         ErrorKind = "UNEXPECTED"
)

// Classify maps an error onto its ErrorKind
func Classify(err error) ErrorKind {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ErrorKindValidation
	case errors.Is(err, ErrInsufficientFunds):
		return ErrorKindInsufficientFunds
	case errors.Is(err, ErrServiceUnavailable):
		return ErrorKindServiceUnavailable
	default:
		return ErrorKindUnexpected
	}
}
