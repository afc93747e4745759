// Package apperrors defines the machine-readable error taxonomy shared by
// every component of the membership-proof core. Operational errors carry a
// Kind that is safe to put on the wire; programmer errors are collapsed to
// KindInternal so internals never leak past the API boundary.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a stable, wire-safe error classification. Values are exhaustive
// per the taxonomy the verifier and set manager report against.
type Kind string

const (
	KindInvalidCredential        Kind = "INVALID_CREDENTIAL"
	KindCredentialNotFound       Kind = "CREDENTIAL_NOT_FOUND"
	KindCredentialSetNotFound    Kind = "CREDENTIAL_SET_NOT_FOUND"
	KindDuplicateCredential      Kind = "DUPLICATE_CREDENTIAL"
	KindCredentialLimitExceeded  Kind = "CREDENTIAL_LIMIT_EXCEEDED"

	KindProofGenerationFailed   Kind = "PROOF_GENERATION_FAILED"
	KindProofVerificationFailed Kind = "PROOF_VERIFICATION_FAILED"
	KindProofExpired            Kind = "PROOF_EXPIRED"
	KindInvalidProofStructure   Kind = "INVALID_PROOF_STRUCTURE"

	KindCircuitNotFound            Kind = "CIRCUIT_NOT_FOUND"
	KindCircuitInitializationFailed Kind = "CIRCUIT_INITIALIZATION_FAILED"
	KindVerificationKeyNotFound    Kind = "VERIFICATION_KEY_NOT_FOUND"

	KindUntrustedRoot     Kind = "UNTRUSTED_ROOT"
	KindInvalidRootFormat Kind = "INVALID_ROOT_FORMAT"

	KindValidationError Kind = "VALIDATION_ERROR"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// Error is the concrete error type returned across component boundaries.
// Message is safe to log and return to callers; Details holds optional
// field-specific strings (never raw internal state).
type Error struct {
	Kind    Kind
	Message string
	Details []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an operational error with an optional list of field details.
func New(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap attaches a Kind to an underlying error without discarding it, the
// way the teacher wraps errors with fmt.Errorf's %w but with a stable,
// classifiable head instead of free text.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Internal maps a programmer error (a broken invariant, a recovered panic)
// to the one kind that is safe to surface externally, without leaking the
// underlying cause in the Message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// Is supports errors.Is against a bare Kind sentinel comparison pattern:
// errors.Is(err, apperrors.New(apperrors.KindProofExpired, "")) matches any
// *Error with the same Kind, regardless of Message/Details/cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// KindInternal otherwise -- used at API boundaries that must always return
// a Kind even for unexpected errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
