package vault

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/qubickit/sdk-go/internal/sdkerr"
)

const lockRetryInterval = 200 * time.Millisecond

// fileLock is a sidecar-file advisory lock: "path.lock" existing means
// some process holds the vault. This is strictly in-process-cooperative —
// it protects against cross-process races, not in-process ones, per
// spec.md §5.
type fileLock struct {
	path string
}

func acquireFileLock(path string, timeout time.Duration) (*fileLock, error) {
	lockPath := path + ".lock"
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			f.Close()
			return &fileLock{path: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("vault: create lock file: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, sdkerr.NewError(sdkerr.ErrKindVault, fmt.Sprintf("vault: timed out waiting for lock %q", lockPath), nil)
		}
		time.Sleep(lockRetryInterval)
	}
}

func (l *fileLock) release() error {
	if l == nil {
		return nil
	}
	return os.Remove(l.path)
}

// exitRegistry tracks open vaults so a single process-exit hook can
// release their locks on abrupt termination (spec.md §9: "a single
// process-exit hook per process that walks a registry of open vaults").
// Do not hide this bookkeeping in unrelated constructors.
var exitRegistry = struct {
	mu     sync.Mutex
	vaults map[*Vault]struct{}
}{vaults: make(map[*Vault]struct{})}

func registerForExitCleanup(v *Vault) {
	exitRegistry.mu.Lock()
	exitRegistry.vaults[v] = struct{}{}
	exitRegistry.mu.Unlock()
}

func unregisterForExitCleanup(v *Vault) {
	exitRegistry.mu.Lock()
	delete(exitRegistry.vaults, v)
	exitRegistry.mu.Unlock()
}

// ReleaseAllLocksOnExit releases every still-open vault's lock. Callers
// register this with their own process-exit hook (e.g. a signal handler
// or os.Exit wrapper); the SDK does not install one implicitly.
func ReleaseAllLocksOnExit() {
	exitRegistry.mu.Lock()
	defer exitRegistry.mu.Unlock()
	for v := range exitRegistry.vaults {
		if v.lock != nil {
			_ = v.lock.release()
		}
	}
}
