package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeInternal     Code = "internal_error"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"

	// Credential lifecycle codes.
	CodeUntrustedIssuer     Code = "untrusted_issuer"
	CodeInvalidSignature    Code = "invalid_signature"
	CodeRevokedCredential   Code = "revoked_credential"
	CodeExpiredCredential   Code = "expired_credential"
	CodeVCNotFound          Code = "vc_not_found"
	CodeUnknownClaim        Code = "unknown_claim"
	CodeDisclosureMismatch  Code = "disclosure_mismatch"
	CodeUnknownChallenge    Code = "unknown_challenge"
	CodeExpiredChallenge    Code = "expired_challenge"
	CodeReplayedChallenge   Code = "replayed_challenge"

	// Infrastructure codes. These two are retryable; everything else is
	// surfaced verbatim to the caller.
	CodeChainUnavailable Code = "chain_unavailable"
	CodeStoreUnavailable Code = "store_unavailable"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of a domain error, or CodeInternal for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Retryable reports whether the error is a transient infrastructure failure
// that callers may retry with bounded backoff.
func Retryable(err error) bool {
	return HasCode(err, CodeChainUnavailable) || HasCode(err, CodeStoreUnavailable)
}
