// Package ferrors defines the tagged error taxonomy shared across the
// transactional core: commit validation, staging, SHACL, policy and
// storage all raise one of these so callers can branch on Code without
// string-matching messages.
package ferrors

import (
	"errors"
	"fmt"
)

// Code identifies the broad class of failure, mirroring the status tags
// used throughout the commit/transaction pipeline.
type Code string

const (
	// InvalidCommit covers malformed commit maps, hash mismatches and
	// t-gaps encountered while writing or reifying the commit chain.
	InvalidCommit Code = "invalid-commit"
	// InvalidTransaction covers staging failures: missing properties,
	// bad value shapes, unresolvable references.
	InvalidTransaction Code = "invalid-transaction"
	// SHACLViolation carries a validation report; the transaction that
	// produced it never reaches commit!.
	SHACLViolation Code = "shacl/violation"
	// InvalidPolicy covers policy compilation errors.
	InvalidPolicy Code = "invalid-policy"
	// UnexpectedError covers comparator/invariant failures that should
	// never occur given a correct implementation.
	UnexpectedError Code = "db/unexpected-error"
)

// Error is the tagged error type propagated out of the core. Details is
// an optional structured payload (e.g. a SHACL validation report).
type Error struct {
	Status  Code
	Message string
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Status: code, Message: message}
}

// Wrap builds a tagged Error around an existing error, returning nil if
// err is nil so call sites can write `return ferrors.Wrap(...)` unconditionally
// inside error-handling branches without a nil check of their own.
func Wrap(code Code, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Status: code, Message: message, Cause: err}
}

// WithDetails attaches a structured payload (e.g. a SHACL ValidationReport)
// to the error and returns the same instance for chaining.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Is reports whether err (or any error it wraps) carries the given Code.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status == code
	}
	return false
}
