package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory based on the host OS.
// TALLY_DATA_DIR wins when set; otherwise standard locations are preferred,
// falling back to a dotdir in the user's home directory.
func DefaultDataDir() string {
	if v := os.Getenv(EnvPrefix + "DATA_DIR"); v != "" {
		return v
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tally")
	}

	// Common Linux/Unix system dir
	if isDir("/var/lib") {
		return "/var/lib/tally"
	}

	// macOS: ~/Library/Application Support/Tally
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Tally")
	}

	// Windows: %USERPROFILE%/AppData/Local/Tally
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Tally")
	}

	// Fallback: ~/.tally
	return filepath.Join(homeDir, ".tally")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
