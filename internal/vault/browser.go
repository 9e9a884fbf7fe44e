package vault

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/qcrypto"
)

// pbkdf2Iterations is the browser-vault KDF default from spec.md §4.J,
// grounded on the orbas1-Synnergy CLI wallet's pbkdf2.Key(..., 150_000
// iterations, sha256.New) call, raised to the spec's own default.
const pbkdf2Iterations = 200_000

// Store is the pluggable persistence backend for a BrowserVault: a
// key-value blob store such as IndexedDB or localStorage, supplied by
// the host environment rather than assumed to be a filesystem.
type Store interface {
	Read(ctx context.Context) ([]byte, bool, error)
	Write(ctx context.Context, data []byte) error
	Remove(ctx context.Context) error
}

// BrowserVault is the pluggable-store counterpart to Vault: same
// VaultFile format and AES-256-GCM envelope, but PBKDF2-SHA256 in place
// of scrypt (browser JS crypto APIs expose PBKDF2 natively; scrypt does
// not have a WebCrypto equivalent) and no file lock, since the host
// store is responsible for serializing access.
type BrowserVault struct {
	mu    sync.Mutex
	store Store
	file  VaultFile
	key   []byte

	autoSave bool
	log      *obslog.Logger
}

// BrowserOpenOptions configures OpenBrowser.
type BrowserOpenOptions struct {
	Store      Store
	Passphrase string
	Create     bool
	Iterations int
	AutoSave   *bool
	Log        *obslog.Logger
}

// OpenBrowser loads (or creates) a vault through a pluggable Store.
func OpenBrowser(ctx context.Context, opts BrowserOpenOptions) (*BrowserVault, error) {
	log := opts.Log
	if log == nil {
		log = obslog.NewNop()
	}
	iterations := opts.Iterations
	if iterations == 0 {
		iterations = pbkdf2Iterations
	}

	data, found, err := opts.Store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault: read store: %w", err)
	}

	var vf VaultFile
	var key []byte

	if !found {
		if !opts.Create {
			return nil, fmt.Errorf("vault: store entry does not exist and create was not requested")
		}
		if err := validatePassphraseStrength(opts.Passphrase); err != nil {
			return nil, err
		}
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("vault: generate salt: %w", err)
		}
		vf = VaultFile{
			VaultVersion: vaultVersion,
			KDF: kdfSection{
				Name:   "pbkdf2-sha256",
				Salt:   salt,
				Params: KDFParams{N: iterations, KeyLen: scryptKeyLen},
			},
		}
		key = pbkdf2.Key([]byte(opts.Passphrase), salt, iterations, scryptKeyLen, sha256.New)
	} else {
		if err := json.Unmarshal(data, &vf); err != nil {
			return nil, fmt.Errorf("vault: parse vault file: %w", err)
		}
		if vf.VaultVersion != vaultVersion {
			return nil, fmt.Errorf("vault: unsupported vaultVersion %d", vf.VaultVersion)
		}
		key = pbkdf2.Key([]byte(opts.Passphrase), vf.KDF.Salt, vf.KDF.Params.N, vf.KDF.Params.KeyLen, sha256.New)
		if err := verifyKey(vf, key); err != nil {
			return nil, err
		}
	}

	bv := &BrowserVault{
		store:    opts.Store,
		file:     vf,
		key:      key,
		autoSave: boolOr(opts.AutoSave, true),
		log:      log,
	}

	if !found {
		if err := bv.save(ctx); err != nil {
			return nil, err
		}
	}
	return bv, nil
}

func (v *BrowserVault) findEntry(ref string) (*VaultEntry, error) {
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

// GetSeed decrypts and returns the seed for ref.
func (v *BrowserVault) GetSeed(ref string) (string, error) {
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

// AddSeed encrypts and stores a new seed, mirroring Vault.AddSeed.
func (v *BrowserVault) AddSeed(ctx context.Context, req AddSeedRequest) (VaultEntry, error) {
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
	entry := VaultEntry{Name: req.Name, Identity: identity, SeedIndex: req.SeedIndex, UpdatedAt: now, Encrypted: blob}
	if existingIdx >= 0 {
		entry.CreatedAt = v.file.Entries[existingIdx].CreatedAt
		v.file.Entries[existingIdx] = entry
	} else {
		entry.CreatedAt = now
		v.file.Entries = append(v.file.Entries, entry)
	}

	if v.autoSave {
		if err := v.saveLocked(ctx); err != nil {
			return VaultEntry{}, err
		}
	}
	return entry, nil
}

// Save persists the vault through the Store immediately.
func (v *BrowserVault) Save(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saveLocked(ctx)
}

func (v *BrowserVault) save(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saveLocked(ctx)
}

func (v *BrowserVault) saveLocked(ctx context.Context) error {
	data, err := json.Marshal(v.file)
	if err != nil {
		return fmt.Errorf("vault: marshal: %w", err)
	}
	return v.store.Write(ctx, data)
}

// MemoryStore is a concrete in-memory Store, grounded on the teacher's
// src/chainadapter/storage/memory.go sync.RWMutex-guarded map. It is a
// usable reference implementation for tests and ephemeral sessions; real
// browser hosts back Store with IndexedDB or localStorage instead.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
	ok   bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(context.Context) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ok {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

func (m *MemoryStore) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	m.ok = true
	return nil
}

func (m *MemoryStore) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.ok = false
	return nil
}
