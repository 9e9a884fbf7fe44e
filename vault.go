package qubicsdk

import (
	"context"

	"github.com/qubickit/sdk-go/internal/vault"
)

// re-exported so callers never need to import internal/vault themselves.
type (
	Vault            = vault.Vault
	VaultEntry       = vault.VaultEntry
	VaultOpenOptions = vault.OpenOptions
	AddSeedRequest   = vault.AddSeedRequest
	ImportMode       = vault.ImportMode
	KDFParams        = vault.KDFParams

	BrowserVault       = vault.BrowserVault
	BrowserVaultStore  = vault.Store
	BrowserOpenOptions = vault.BrowserOpenOptions
)

const (
	ImportMerge   = vault.ImportMerge
	ImportReplace = vault.ImportReplace
)

// DefaultVaultKDFParams are the spec-mandated scrypt defaults
// (N=2^13, r=8, p=1, dkLen=32).
var DefaultVaultKDFParams = vault.DefaultKDFParams

// OpenVault opens (or creates) a file-backed seed vault (spec.md §4.J).
func OpenVault(opts VaultOpenOptions) (*Vault, error) {
	return vault.Open(opts)
}

// OpenBrowserVault opens (or creates) a pluggable-store seed vault using
// PBKDF2-SHA256 in place of scrypt (spec.md §4.J's browser-flavored
// variant).
func OpenBrowserVault(ctx context.Context, opts BrowserOpenOptions) (*BrowserVault, error) {
	return vault.OpenBrowser(ctx, opts)
}
