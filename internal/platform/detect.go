package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ResolveModelDir returns the directory where model artifacts are stored,
// honoring an explicit override before falling back to the per-OS data dir.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"))
}

func DefaultModelDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "medasr", "models"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "medasr", "models"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "medasr", "models"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}
