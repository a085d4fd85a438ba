// Package paths resolves the platform-specific directories the engine
// stores weight files and caches in.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "gozen"

// DataDir returns the platform-specific data directory for the engine,
// creating it if needed.
// - macOS: ~/Library/Application Support/gozen/
// - Linux: ~/.local/share/gozen/
// - Windows: %APPDATA%/gozen/
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Linux and other Unix-like: XDG_DATA_HOME, then ~/.local/share/
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// WeightsDir returns the directory for storing network weight files.
func WeightsDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}

	weightsDir := filepath.Join(dataDir, "weights")
	if err := os.MkdirAll(weightsDir, 0755); err != nil {
		return "", err
	}
	return weightsDir, nil
}

// CacheDir returns the directory for the persistent evaluation cache.
func CacheDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(dataDir, "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", err
	}
	return cacheDir, nil
}
