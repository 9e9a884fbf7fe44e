// Package sdkerr holds the process-global, matchable error taxonomy from
// spec.md §7 as a leaf package: internal packages (confirm, txqueue,
// vault, registry, rpcclient, logstream) construct these directly, and
// root errors.go re-exports the same types so callers never need to
// import this package themselves.
package sdkerr

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the process-global, matchable error taxonomy from
// spec.md §7.
type ErrorKind string

const (
	// Input validation
	ErrKindOutOfRange        ErrorKind = "out_of_range"
	ErrKindInputSizeMismatch ErrorKind = "input_size_mismatch"
	ErrKindInvalidAssetName  ErrorKind = "invalid_asset_name"
	ErrKindInvalidHex        ErrorKind = "invalid_hex"
	ErrKindSendManyTooLarge  ErrorKind = "send_many_too_large"

	// Transport
	ErrKindRPCRequestFailed ErrorKind = "rpc_request_failed"
	ErrKindRPCInvalidJSON   ErrorKind = "rpc_invalid_json"
	ErrKindBobRequestFailed ErrorKind = "bob_request_failed"
	ErrKindBobInvalidJSON   ErrorKind = "bob_invalid_json"

	// Domain
	ErrKindTxNotFound            ErrorKind = "tx_not_found"
	ErrKindTxConfirmationTimeout ErrorKind = "tx_confirmation_timeout"
	ErrKindTxConfirmationAborted ErrorKind = "tx_confirmation_aborted"
	ErrKindQueuedTransaction     ErrorKind = "queued_transaction"
	ErrKindContractQueryAborted  ErrorKind = "contract_query_aborted"
	ErrKindQbiEntryNotFound      ErrorKind = "qbi_entry_not_found"
	ErrKindQbiCodecMissing       ErrorKind = "qbi_codec_missing"
	ErrKindQbiCodecValidation    ErrorKind = "qbi_codec_validation"
	ErrKindQbiCodec              ErrorKind = "qbi_codec"
	ErrKindQueuePolicyRejected   ErrorKind = "queue_policy_rejected"

	// Vault
	ErrKindVaultNotFound      ErrorKind = "vault_not_found"
	ErrKindVaultInvalidPass   ErrorKind = "vault_invalid_passphrase"
	ErrKindVaultEntryNotFound ErrorKind = "vault_entry_not_found"
	ErrKindVaultEntryExists   ErrorKind = "vault_entry_exists"
	ErrKindVault              ErrorKind = "vault"
)

// Error is the SDK's single error type: a typed kind, a human message, an
// optional wrapped cause, and optional structured fields for observability
// hooks/logging. It implements Unwrap so errors.Is/As compose with wrapped
// transport or codec failures, matching the teacher's
// fmt.Errorf("...: %w", err) wrapping discipline.
type Error struct {
	Kind       ErrorKind
	Message    string
	Underlying error
	Fields     map[string]any
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

// Is allows errors.Is(err, &Error{Kind: ErrKindTxNotFound}) style matching
// on kind alone, so a sentinel like confirm.ErrNotFound keeps working with
// errors.Is/require.ErrorIs after becoming a typed *Error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NewError constructs an *Error of the given kind.
func NewError(kind ErrorKind, message string, underlying error) *Error {
	return &Error{Kind: kind, Message: message, Underlying: underlying}
}

// WithField attaches a structured field and returns the same *Error for
// chaining at construction sites.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// kinded is implemented by transport error types (rpcclient.RPCError,
// rpcclient.InvalidJSONError, logstream's websocket errors) that carry
// their own structured fields instead of wrapping an *Error, so KindOf
// still resolves a matchable kind for them.
type kinded interface {
	SDKErrorKind() ErrorKind
}

// KindOf extracts the ErrorKind from err if it is (or wraps) an *Error or
// a transport error implementing SDKErrorKind() ErrorKind, and the zero
// ErrorKind otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k kinded
	if errors.As(err, &k) {
		return k.SDKErrorKind()
	}
	return ""
}
