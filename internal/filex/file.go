// Package filex contains filesystem helpers for the local data directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) with owner-only permissions if it does
// not exist and returns its absolute path. A relative dir is resolved against
// the working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// DefaultDataDir returns the per-user data directory for fediauth, falling
// back to ".fediauth" in the working directory when the user config dir is
// unknown.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return ".fediauth"
	}
	return filepath.Join(base, "fediauth")
}
