package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

// readFileIfExists returns (nil, nil) when filename does not exist,
// distinguishing "not found" from I/O errors for Open's create logic.
func readFileIfExists(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("vault: read file: %w", err)
	}
	return data, nil
}

// atomicWriteFile writes data to filename via a temp-file-then-rename,
// adapted from the teacher's internal/services/storage.AtomicWriteFile —
// generalized from a fixed USB-target permission mode to a caller-
// supplied one.
func atomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("vault: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vault-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("vault: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("vault: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("vault: rename temp file: %w", err)
	}
	return nil
}
