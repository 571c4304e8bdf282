// Package apperr defines the small, closed error taxonomy that crosses every
// component boundary in the fabric, as specified in §7.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies which of the eight named error categories an Error
// belongs to. Callers classify failures by comparing Code, never by
// matching on error strings.
type Code string

const (
	// InvalidInput marks a malformed node ID, bad content hash, or missing
	// required field, surfaced to the UI/CLI caller.
	InvalidInput Code = "invalid_input"

	// NotFound marks a lookup miss against the store (peer, secret, or
	// audit record that does not exist).
	NotFound Code = "not_found"

	// Forbidden marks an authorization failure: a delete attempted by
	// someone other than the secret's target-owner.
	Forbidden Code = "forbidden"

	// BadSignature marks any signing-codec failure: deserialization
	// failure, signature/public-key mismatch, or payload re-deserialization
	// failure.
	BadSignature Code = "bad_signature"

	// TransportError marks a failure from the transport collaborator
	// (dial, listen, send, or receive).
	TransportError Code = "transport_error"

	// StoreError marks a failure from the persistent store collaborator.
	StoreError Code = "store_error"

	// CredentialStoreUnavailable marks the OS credential store binary
	// being absent or non-functional on this host.
	CredentialStoreUnavailable Code = "credential_store_unavailable"

	// CredentialPermissionDenied marks a permission failure writing to the
	// OS credential store.
	CredentialPermissionDenied Code = "credential_permission_denied"
)

// Error is the concrete error type returned across component boundaries.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New constructs an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an Error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err carries the given Code, looking through wrapping
// via errors.As.
func Is(err error, code Code) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
