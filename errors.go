package qubicsdk

import (
	"errors"

	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/sdkerr"
)

// RPCError re-exports the transport package's error type so callers can
// errors.As against it without importing internal/rpcclient themselves.
type RPCError = rpcclient.RPCError

// ErrorKind enumerates the process-global, matchable error taxonomy from
// spec.md §7. Re-exported from internal/sdkerr, which every internal
// package that produces an SDK error constructs against directly.
type ErrorKind = sdkerr.ErrorKind

const (
	// Input validation
	ErrKindOutOfRange        = sdkerr.ErrKindOutOfRange
	ErrKindInputSizeMismatch = sdkerr.ErrKindInputSizeMismatch
	ErrKindInvalidAssetName  = sdkerr.ErrKindInvalidAssetName
	ErrKindInvalidHex        = sdkerr.ErrKindInvalidHex
	ErrKindSendManyTooLarge  = sdkerr.ErrKindSendManyTooLarge

	// Transport
	ErrKindRPCRequestFailed = sdkerr.ErrKindRPCRequestFailed
	ErrKindRPCInvalidJSON   = sdkerr.ErrKindRPCInvalidJSON
	ErrKindBobRequestFailed = sdkerr.ErrKindBobRequestFailed
	ErrKindBobInvalidJSON   = sdkerr.ErrKindBobInvalidJSON

	// Domain
	ErrKindTxNotFound            = sdkerr.ErrKindTxNotFound
	ErrKindTxConfirmationTimeout = sdkerr.ErrKindTxConfirmationTimeout
	ErrKindTxConfirmationAborted = sdkerr.ErrKindTxConfirmationAborted
	ErrKindQueuedTransaction     = sdkerr.ErrKindQueuedTransaction
	ErrKindContractQueryAborted  = sdkerr.ErrKindContractQueryAborted
	ErrKindQbiEntryNotFound      = sdkerr.ErrKindQbiEntryNotFound
	ErrKindQbiCodecMissing       = sdkerr.ErrKindQbiCodecMissing
	ErrKindQbiCodecValidation    = sdkerr.ErrKindQbiCodecValidation
	ErrKindQbiCodec              = sdkerr.ErrKindQbiCodec
	ErrKindQueuePolicyRejected   = sdkerr.ErrKindQueuePolicyRejected

	// Vault
	ErrKindVaultNotFound      = sdkerr.ErrKindVaultNotFound
	ErrKindVaultInvalidPass   = sdkerr.ErrKindVaultInvalidPass
	ErrKindVaultEntryNotFound = sdkerr.ErrKindVaultEntryNotFound
	ErrKindVaultEntryExists   = sdkerr.ErrKindVaultEntryExists
	ErrKindVault              = sdkerr.ErrKindVault
)

// Error is the SDK's single error type: a typed kind, a human message, an
// optional wrapped cause, and optional structured fields for observability
// hooks/logging. It implements Unwrap so errors.Is/As compose with wrapped
// transport or codec failures, matching the teacher's
// fmt.Errorf("...: %w", err) wrapping discipline.
type Error = sdkerr.Error

// NewError constructs an *Error of the given kind.
func NewError(kind ErrorKind, message string, underlying error) *Error {
	return sdkerr.NewError(kind, message, underlying)
}

// KindOf extracts the ErrorKind from err if it is (or wraps) an *Error,
// and the zero ErrorKind otherwise.
func KindOf(err error) ErrorKind {
	return sdkerr.KindOf(err)
}

// Is404 reports whether err represents the ledger's distinguished "record
// not found" transport signal (spec.md §4.A: "A 404 from
// getTransactionByHash is a distinguished signal, not a fatal error").
func Is404(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Status == 404
	}
	return false
}
