package vault

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed1 = "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
const testSeed2 = "zyxwvutsrqponmlkjihgfedcbazyxwvutsrqponmlkjihgfedcba"

func openTestVault(t *testing.T, path string) *Vault {
	t.Helper()
	v, err := Open(OpenOptions{Path: path, Passphrase: "Correct-Horse-Battery9", Create: true})
	require.NoError(t, err)
	return v
}

func TestAddSeedSaveCloseOpenGetSeedRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	v := openTestVault(t, path)
	entry, err := v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)
	require.NoError(t, v.Save())
	require.NoError(t, v.Close())

	v2, err := Open(OpenOptions{Path: path, Passphrase: "Correct-Horse-Battery9"})
	require.NoError(t, err)
	defer v2.Close()

	byName, err := v2.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed1, byName)

	byIdentity, err := v2.GetSeed(entry.Identity)
	require.NoError(t, err)
	assert.Equal(t, testSeed1, byIdentity)
}

func TestOpenWithWrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	v := openTestVault(t, path)
	_, err := v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, err = Open(OpenOptions{Path: path, Passphrase: "wrong passphrase"})
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestAddSeedWithoutOverwriteRejectsCollidingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	v := openTestVault(t, path)
	defer v.Close()

	_, err := v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)

	_, err = v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed2})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed2, Overwrite: true})
	require.NoError(t, err)

	got, err := v.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed2, got)
}

func TestRemoveDeletesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	v := openTestVault(t, path)
	defer v.Close()

	_, err := v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)

	require.NoError(t, v.Remove("alice"))
	_, err = v.GetSeed("alice")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRotatePassphraseReEncryptsAllEntriesAndOldPassphraseStopsWorking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	v := openTestVault(t, path)

	_, err := v.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)
	_, err = v.AddSeed(AddSeedRequest{Name: "bob", Seed: testSeed2})
	require.NoError(t, err)

	require.NoError(t, v.RotatePassphrase("New-Passphrase-Entirely9"))
	require.NoError(t, v.Close())

	_, err = Open(OpenOptions{Path: path, Passphrase: "Correct-Horse-Battery9"})
	assert.ErrorIs(t, err, ErrWrongPassphrase)

	v2, err := Open(OpenOptions{Path: path, Passphrase: "New-Passphrase-Entirely9"})
	require.NoError(t, err)
	defer v2.Close()

	got, err := v2.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed1, got)
}

func TestExportEncryptedThenImportIntoFreshVault(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "src.json")
	src := openTestVault(t, srcPath)
	_, err := src.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)
	blob, err := src.ExportEncrypted()
	require.NoError(t, err)
	require.NoError(t, src.Close())

	dstPath := filepath.Join(t.TempDir(), "dst.json")
	dst, err := Open(OpenOptions{Path: dstPath, Passphrase: "A-Different-Passphrase9", Create: true})
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.ImportEncrypted(blob, ImportMerge, "Correct-Horse-Battery9"))

	got, err := dst.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed1, got)
}

func TestImportEncryptedReplaceModeWipesExistingEntries(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "src.json")
	src := openTestVault(t, srcPath)
	_, err := src.AddSeed(AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)
	blob, err := src.ExportEncrypted()
	require.NoError(t, err)
	require.NoError(t, src.Close())

	dstPath := filepath.Join(t.TempDir(), "dst.json")
	dst, err := Open(OpenOptions{Path: dstPath, Passphrase: "A-Different-Passphrase9", Create: true})
	require.NoError(t, err)
	defer dst.Close()
	_, err = dst.AddSeed(AddSeedRequest{Name: "bob", Seed: testSeed2})
	require.NoError(t, err)

	require.NoError(t, dst.ImportEncrypted(blob, ImportReplace, "Correct-Horse-Battery9"))

	_, err = dst.GetSeed("bob")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	got, err := dst.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed1, got)
}

func TestLockPreventsConcurrentOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	v := openTestVault(t, path)
	defer v.Close()

	_, err := Open(OpenOptions{Path: path, Passphrase: "Correct-Horse-Battery9", LockTimeoutMs: 0})
	assert.Error(t, err)
}
