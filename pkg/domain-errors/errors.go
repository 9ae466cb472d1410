// Package domainerrors provides coded errors shared across the engine.
//
// Models and services construct errors with New/Wrap; callers branch on
// codes via HasCode/Is instead of matching message text. Stores do not
// use this package for factual states (see pkg/platform/sentinel) —
// services translate store sentinels into coded errors at the boundary.
package domainerrors

import "errors"

// Code classifies an error for programmatic handling.
type Code string

const (
	// CodeInternal marks infrastructure and unexpected failures.
	CodeInternal Code = "internal"
	// CodeValidation marks service input that was rejected.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed values at trust boundaries (ID parsing, config).
	CodeInvalidInput Code = "invalid_input"
	// CodeInvariantViolation marks an operation that would break a documented model invariant.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound marks a missing entity surfaced to callers.
	CodeNotFound Code = "not_found"
	// CodeConflict marks duplicate writes and lost races.
	CodeConflict Code = "conflict"

	// CodeInvalidChecksum marks identifier checksum failures (IBAN, SIRET, SIREN, NIR).
	CodeInvalidChecksum Code = "invalid_checksum"
	// CodeInvalidFormat marks identifier pattern failures (BIC, VAT).
	CodeInvalidFormat Code = "invalid_format"
	// CodeIllegalTransition marks payment lifecycle violations.
	CodeIllegalTransition Code = "illegal_transition"
	// CodeMissingBankDetails marks approvals blocked on payee bank validation.
	CodeMissingBankDetails Code = "missing_bank_details"
)

type domainError struct {
	code Code
	msg  string
	err  error
}

func (e *domainError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *domainError) Unwrap() error { return e.err }

// New returns a coded error with the given message.
func New(code Code, msg string) error {
	return &domainError{code: code, msg: msg}
}

// Wrap annotates err with a code and message. The wrapped error stays
// reachable through errors.Is and errors.As.
func Wrap(err error, code Code, msg string) error {
	return &domainError{code: code, msg: msg, err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *domainError
		if !errors.As(err, &de) {
			return false
		}
		if de.code == code {
			return true
		}
		err = de.err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// GetCode returns the outermost code in the chain, or CodeInternal when
// the error carries no code.
func GetCode(err error) Code {
	var de *domainError
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}

// IsCoded reports whether any error in the chain is a coded domain error.
// Services use it to pass already-classified errors through unchanged
// instead of re-wrapping them as CodeInternal.
func IsCoded(err error) bool {
	var de *domainError
	return errors.As(err, &de)
}
