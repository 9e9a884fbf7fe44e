package vault

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data []byte
	ok   bool
}

func (s *memStore) Read(context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, s.ok, nil
}

func (s *memStore) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.ok = true
	return nil
}

func (s *memStore) Remove(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.ok = false
	return nil
}

func TestBrowserVaultAddSeedPersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	v, err := OpenBrowser(ctx, BrowserOpenOptions{Store: store, Passphrase: "Hunter2-Secret!", Create: true})
	require.NoError(t, err)

	entry, err := v.AddSeed(ctx, AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)

	v2, err := OpenBrowser(ctx, BrowserOpenOptions{Store: store, Passphrase: "Hunter2-Secret!"})
	require.NoError(t, err)

	got, err := v2.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed1, got)

	got, err = v2.GetSeed(entry.Identity)
	require.NoError(t, err)
	assert.Equal(t, testSeed1, got)
}

func TestMemoryStoreRoundTripsThroughBrowserVault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	v, err := OpenBrowser(ctx, BrowserOpenOptions{Store: store, Passphrase: "Hunter2-Secret!", Create: true})
	require.NoError(t, err)
	_, err = v.AddSeed(ctx, AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)

	v2, err := OpenBrowser(ctx, BrowserOpenOptions{Store: store, Passphrase: "Hunter2-Secret!"})
	require.NoError(t, err)

	got, err := v2.GetSeed("alice")
	require.NoError(t, err)
	assert.Equal(t, testSeed1, got)
}

func TestBrowserVaultWrongPassphraseFails(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	v, err := OpenBrowser(ctx, BrowserOpenOptions{Store: store, Passphrase: "Hunter2-Secret!", Create: true})
	require.NoError(t, err)
	_, err = v.AddSeed(ctx, AddSeedRequest{Name: "alice", Seed: testSeed1})
	require.NoError(t, err)

	_, err = OpenBrowser(ctx, BrowserOpenOptions{Store: store, Passphrase: "wrong"})
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}
