// Package vault implements the file-backed seed vault from spec.md §4.J:
// scrypt-derived key encryption of named seeds, atomic saves, an
// advisory file lock, and the ref-resolution and rotate/export/import
// operations a wallet-like consumer needs. It is grounded on the
// teacher's internal/services/crypto/encryption.go (Argon2id + AES-256-GCM,
// binary envelope) and internal/services/storage/file.go (atomic writes),
// adapted from Argon2id to scrypt per the spec's KDF defaults.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"unicode"

	"golang.org/x/crypto/scrypt"

	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/qcrypto"
	"github.com/qubickit/sdk-go/internal/sdkerr"
	"github.com/qubickit/sdk-go/internal/txbuilder"
)

const (
	vaultVersion = 1

	scryptN      = 1 << 13
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	nonceSize = 12
)

// ErrEntryNotFound is returned when a ref does not resolve to any entry.
var ErrEntryNotFound = sdkerr.NewError(sdkerr.ErrKindVaultEntryNotFound, "vault: entry not found", nil)

// ErrAlreadyExists is returned by addSeed when name collides and
// overwrite was not requested.
var ErrAlreadyExists = sdkerr.NewError(sdkerr.ErrKindVaultEntryExists, "vault: entry already exists", nil)

// ErrWrongPassphrase is returned when decryption fails, which for
// AES-GCM means either a bad key or tampered ciphertext.
var ErrWrongPassphrase = sdkerr.NewError(sdkerr.ErrKindVaultInvalidPass, "vault: wrong passphrase or corrupted vault", nil)

// ErrWeakPassphrase is returned by Open/OpenBrowser (create) and
// RotatePassphrase when the passphrase does not meet the minimum
// strength requirement.
var ErrWeakPassphrase = sdkerr.NewError(sdkerr.ErrKindVault, "vault: passphrase must be at least 12 characters with 3 of uppercase/lowercase/digit/special", nil)

// validatePassphraseStrength requires 12+ characters and at least 3 of
// the 4 character classes, adapted from the teacher's wallet-password
// policy to vault passphrases.
func validatePassphraseStrength(passphrase string) error {
	if len(passphrase) < 12 {
		return ErrWeakPassphrase
	}
	var upper, lower, digit, special bool
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			special = true
		}
	}
	classes := 0
	for _, ok := range []bool{upper, lower, digit, special} {
		if ok {
			classes++
		}
	}
	if classes < 3 {
		return ErrWeakPassphrase
	}
	return nil
}

// KDFParams names the scrypt cost parameters baked into a vault file.
type KDFParams struct {
	N      int `json:"n"`
	R      int `json:"r"`
	P      int `json:"p"`
	KeyLen int `json:"keyLen"`
}

// DefaultKDFParams matches spec.md §4.J's defaults.
var DefaultKDFParams = KDFParams{N: scryptN, R: scryptR, P: scryptP, KeyLen: scryptKeyLen}

type kdfSection struct {
	Name   string    `json:"name"`
	Salt   []byte    `json:"salt"`
	Params KDFParams `json:"params"`
}

type encryptedBlob struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// VaultEntry is one named seed record from spec.md §3.
type VaultEntry struct {
	Name      string        `json:"name"`
	Identity  string        `json:"identity"`
	SeedIndex uint32        `json:"seedIndex"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Encrypted encryptedBlob `json:"encrypted"`
}

// VaultFile is the on-disk / on-the-wire envelope.
type VaultFile struct {
	VaultVersion int          `json:"vaultVersion"`
	KDF          kdfSection   `json:"kdf"`
	Entries      []VaultEntry `json:"entries"`
}

// Vault is an opened, in-memory view of a VaultFile plus the derived key
// needed to decrypt its entries. All mutating operations hold mu and
// only reach the disk through save(), which is atomic.
type Vault struct {
	mu   sync.Mutex
	path string
	file VaultFile
	key  []byte
	lock *fileLock

	autoSave bool
	log      *obslog.Logger
}

// OpenOptions configures Open.
type OpenOptions struct {
	Path          string
	Passphrase    string
	Create        bool
	KDFParams     *KDFParams
	Lock          *bool
	LockTimeoutMs int
	AutoSave      *bool
	Log           *obslog.Logger
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Open loads (or creates) the vault at opts.Path, deriving the
// decryption key from opts.Passphrase (spec.md §4.J step 1).
func Open(opts OpenOptions) (*Vault, error) {
	log := opts.Log
	if log == nil {
		log = obslog.NewNop()
	}

	useLock := boolOr(opts.Lock, true)
	var lock *fileLock
	if useLock {
		timeout := time.Duration(opts.LockTimeoutMs) * time.Millisecond
		l, err := acquireFileLock(opts.Path, timeout)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	data, err := readFileIfExists(opts.Path)
	if err != nil {
		_ = lock.release()
		return nil, err
	}

	var vf VaultFile
	var key []byte

	if data == nil {
		if !opts.Create {
			_ = lock.release()
			return nil, sdkerr.NewError(sdkerr.ErrKindVaultNotFound, fmt.Sprintf("vault: %q does not exist and create was not requested", opts.Path), nil)
		}
		if err := validatePassphraseStrength(opts.Passphrase); err != nil {
			_ = lock.release()
			return nil, err
		}
		params := DefaultKDFParams
		if opts.KDFParams != nil {
			params = *opts.KDFParams
		}
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			_ = lock.release()
			return nil, fmt.Errorf("vault: generate salt: %w", err)
		}
		vf = VaultFile{
			VaultVersion: vaultVersion,
			KDF:          kdfSection{Name: "scrypt", Salt: salt, Params: params},
		}
		key, err = deriveKey(opts.Passphrase, salt, params)
		if err != nil {
			_ = lock.release()
			return nil, err
		}
	} else {
		if err := json.Unmarshal(data, &vf); err != nil {
			_ = lock.release()
			return nil, fmt.Errorf("vault: parse vault file: %w", err)
		}
		if vf.VaultVersion != vaultVersion {
			_ = lock.release()
			return nil, fmt.Errorf("vault: unsupported vaultVersion %d", vf.VaultVersion)
		}
		key, err = deriveKey(opts.Passphrase, vf.KDF.Salt, vf.KDF.Params)
		if err != nil {
			_ = lock.release()
			return nil, err
		}
		if err := verifyKey(vf, key); err != nil {
			_ = lock.release()
			return nil, err
		}
	}

	v := &Vault{
		path:     opts.Path,
		file:     vf,
		key:      key,
		lock:     lock,
		autoSave: boolOr(opts.AutoSave, true),
		log:      log,
	}
	registerForExitCleanup(v)

	if data == nil {
		if err := v.save(); err != nil {
			unregisterForExitCleanup(v)
			_ = lock.release()
			return nil, err
		}
	}

	return v, nil
}

// verifyKey decrypts the first entry (if any) to confirm the passphrase
// is right, rather than waiting for the first getSeed call to fail.
func verifyKey(vf VaultFile, key []byte) error {
	if len(vf.Entries) == 0 {
		return nil
	}
	_, err := decrypt(key, vf.Entries[0].Encrypted)
	if err != nil {
		return ErrWrongPassphrase
	}
	return nil
}

func deriveKey(passphrase string, salt []byte, params KDFParams) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return key, nil
}

func encrypt(key, plaintext []byte) (encryptedBlob, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return encryptedBlob{}, fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return encryptedBlob{}, fmt.Errorf("vault: new gcm: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return encryptedBlob{}, fmt.Errorf("vault: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return encryptedBlob{Nonce: nonce, Ciphertext: ciphertext}, nil
}

func decrypt(key []byte, blob encryptedBlob) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

// findEntry resolves a ref by exact name match first, then by identity
// scan, per spec.md §4.J's ref-resolution order. Caller must hold v.mu.
func (v *Vault) findEntry(ref string) (*VaultEntry, error) {
	for i := range v.file.Entries {
		if v.file.Entries[i].Name == ref {
			return &v.file.Entries[i], nil
		}
	}
	for i := range v.file.Entries {
		if v.file.Entries[i].Identity == ref {
			return &v.file.Entries[i], nil
		}
	}
	return nil, ErrEntryNotFound
}

// List returns a copy of every entry (metadata and encrypted blob; seeds
// are not decrypted).
func (v *Vault) List() []VaultEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]VaultEntry, len(v.file.Entries))
	copy(out, v.file.Entries)
	return out
}

// GetEntry returns the metadata (not the decrypted seed) for ref.
func (v *Vault) GetEntry(ref string) (VaultEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, err := v.findEntry(ref)
	if err != nil {
		return VaultEntry{}, err
	}
	return *e, nil
}

// GetIdentity returns the identity for ref without decrypting the seed.
func (v *Vault) GetIdentity(ref string) (string, error) {
	e, err := v.GetEntry(ref)
	if err != nil {
		return "", err
	}
	return e.Identity, nil
}

// GetSeed decrypts and returns the seed for ref.
func (v *Vault) GetSeed(ref string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, err := v.findEntry(ref)
	if err != nil {
		return "", err
	}
	plaintext, err := decrypt(v.key, e.Encrypted)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// AddSeedRequest describes a new vault entry.
type AddSeedRequest struct {
	Name      string
	Seed      string
	SeedIndex uint32
	Overwrite bool
}

// AddSeed encrypts and stores a new seed, deriving its identity. If
// autoSave is on the change is persisted immediately.
func (v *Vault) AddSeed(req AddSeedRequest) (VaultEntry, error) {
	identity, err := qcrypto.IdentityFromSeed(req.Seed, req.SeedIndex)
	if err != nil {
		return VaultEntry{}, fmt.Errorf("vault: derive identity: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	existingIdx := -1
	for i := range v.file.Entries {
		if v.file.Entries[i].Name == req.Name {
			existingIdx = i
			break
		}
	}
	if existingIdx >= 0 && !req.Overwrite {
		return VaultEntry{}, ErrAlreadyExists
	}

	blob, err := encrypt(v.key, []byte(req.Seed))
	if err != nil {
		return VaultEntry{}, err
	}

	now := time.Now().UTC()
	entry := VaultEntry{
		Name:      req.Name,
		Identity:  identity,
		SeedIndex: req.SeedIndex,
		UpdatedAt: now,
		Encrypted: blob,
	}
	if existingIdx >= 0 {
		entry.CreatedAt = v.file.Entries[existingIdx].CreatedAt
		v.file.Entries[existingIdx] = entry
	} else {
		entry.CreatedAt = now
		v.file.Entries = append(v.file.Entries, entry)
	}

	if v.autoSave {
		if err := v.saveLocked(); err != nil {
			return VaultEntry{}, err
		}
	}
	return entry, nil
}

// Remove deletes the entry named by ref.
func (v *Vault) Remove(ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := -1
	for i, e := range v.file.Entries {
		if e.Name == ref || e.Identity == ref {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrEntryNotFound
	}
	v.file.Entries = append(v.file.Entries[:idx], v.file.Entries[idx+1:]...)

	if v.autoSave {
		return v.saveLocked()
	}
	return nil
}

// RotatePassphrase re-encrypts every entry under a new passphrase,
// all-or-nothing: if any decrypt fails the vault is left untouched
// (spec.md §8 scenario 7).
func (v *Vault) RotatePassphrase(newPassphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := validatePassphraseStrength(newPassphrase); err != nil {
		return err
	}

	params := v.file.KDF.Params
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("vault: generate salt: %w", err)
	}
	newKey, err := deriveKey(newPassphrase, salt, params)
	if err != nil {
		return err
	}

	reencrypted := make([]VaultEntry, len(v.file.Entries))
	for i, e := range v.file.Entries {
		plaintext, err := decrypt(v.key, e.Encrypted)
		if err != nil {
			return fmt.Errorf("vault: rotate: decrypt entry %q: %w", e.Name, err)
		}
		blob, err := encrypt(newKey, plaintext)
		if err != nil {
			return fmt.Errorf("vault: rotate: encrypt entry %q: %w", e.Name, err)
		}
		e.Encrypted = blob
		reencrypted[i] = e
	}

	v.file.Entries = reencrypted
	v.file.KDF.Salt = salt
	v.key = newKey

	if v.autoSave {
		return v.saveLocked()
	}
	return nil
}

// ExportEncrypted returns the raw VaultFile bytes (still encrypted under
// this vault's current key), suitable for ImportEncrypted elsewhere.
func (v *Vault) ExportEncrypted() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return json.Marshal(v.file)
}

// ExportJSON returns every entry with its seed decrypted in the clear.
// Callers must treat the result as sensitive.
func (v *Vault) ExportJSON() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	type plainEntry struct {
		Name      string `json:"name"`
		Identity  string `json:"identity"`
		SeedIndex uint32 `json:"seedIndex"`
		Seed      string `json:"seed"`
	}
	out := make([]plainEntry, 0, len(v.file.Entries))
	for _, e := range v.file.Entries {
		plaintext, err := decrypt(v.key, e.Encrypted)
		if err != nil {
			return nil, err
		}
		out = append(out, plainEntry{Name: e.Name, Identity: e.Identity, SeedIndex: e.SeedIndex, Seed: string(plaintext)})
	}
	return json.Marshal(out)
}

// ImportMode controls how ImportEncrypted combines the imported entry set
// with this vault's existing entries (spec.md §4.J: `importEncrypted(blob,
// {mode:"merge"|"replace"})`).
type ImportMode string

const (
	// ImportMerge upserts: entries from the source that share a name with
	// an existing entry overwrite it in place, everything else is added.
	ImportMerge ImportMode = "merge"
	// ImportReplace wipes every existing entry and installs the source's
	// entry set in its place (spec.md §8: "replaces it entirely").
	ImportReplace ImportMode = "replace"
)

// ImportEncrypted decodes an exported VaultFile blob, decrypting its
// entries with sourcePassphrase (the exporting vault's own passphrase,
// which may differ from this vault's) and re-encrypting them under this
// vault's key.
func (v *Vault) ImportEncrypted(blob []byte, mode ImportMode, sourcePassphrase string) error {
	var source VaultFile
	if err := json.Unmarshal(blob, &source); err != nil {
		return fmt.Errorf("vault: parse import blob: %w", err)
	}
	sourceKey, err := deriveKey(sourcePassphrase, source.KDF.Salt, source.KDF.Params)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	reencrypted := make([]VaultEntry, 0, len(source.Entries))
	for _, se := range source.Entries {
		plaintext, err := decrypt(sourceKey, se.Encrypted)
		if err != nil {
			return fmt.Errorf("vault: import: decrypt entry %q: %w", se.Name, err)
		}
		encBlob, err := encrypt(v.key, plaintext)
		if err != nil {
			return err
		}
		entry := se
		entry.Encrypted = encBlob
		reencrypted = append(reencrypted, entry)
	}

	switch mode {
	case ImportReplace:
		v.file.Entries = reencrypted

	case ImportMerge:
		fallthrough
	default:
		byName := make(map[string]int, len(v.file.Entries))
		for i, e := range v.file.Entries {
			byName[e.Name] = i
		}
		for _, entry := range reencrypted {
			if idx, exists := byName[entry.Name]; exists {
				v.file.Entries[idx] = entry
				continue
			}
			v.file.Entries = append(v.file.Entries, entry)
			byName[entry.Name] = len(v.file.Entries) - 1
		}
	}

	if v.autoSave {
		return v.saveLocked()
	}
	return nil
}

// vaultSeedSource implements txbuilder.SeedSource by resolving a ref
// against this vault at signing time.
type vaultSeedSource struct {
	v   *Vault
	ref string
}

func (s vaultSeedSource) ResolveSeed(context.Context) (string, error) {
	return s.v.GetSeed(s.ref)
}

// Signer returns a txbuilder.SeedSource bound to ref, resolved against
// this vault at signing time (spec.md §4.J: signer(ref) -> {fromVault:
// ref}). Use this when the vault should own the decrypted seed for the
// shortest possible lifetime.
func (v *Vault) Signer(ref string) txbuilder.SeedSource {
	return vaultSeedSource{v: v, ref: ref}
}

// GetSeedSource decrypts ref's seed immediately and returns it as a
// literal txbuilder.SeedSource (spec.md §4.J: getSeedSource(ref) ->
// {fromSeed: ...}), distinct from Signer's lazy, vault-bound resolution.
func (v *Vault) GetSeedSource(ref string) (txbuilder.SeedSource, error) {
	seed, err := v.GetSeed(ref)
	if err != nil {
		return nil, err
	}
	return txbuilder.LiteralSeed(seed), nil
}

// Save persists the vault to disk immediately, regardless of autoSave.
func (v *Vault) Save() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saveLocked()
}

func (v *Vault) saveLocked() error {
	data, err := json.MarshalIndent(v.file, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal: %w", err)
	}
	return atomicWriteFile(v.path, data, 0o600)
}

// Close releases the vault's file lock. It does not implicitly save;
// callers with autoSave off must call Save first.
func (v *Vault) Close() error {
	unregisterForExitCleanup(v)
	if v.lock == nil {
		return nil
	}
	return v.lock.release()
}
