// Package store keeps network files in a local BadgerDB, keyed by the
// architecture hash they were written for.
package store

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "nnueaffine"

// DBEnv overrides the database directory.
const DBEnv = "NNUETOOL_DB"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/nnueaffine/
// - Linux: ~/.local/share/nnueaffine/
// - Windows: %APPDATA%/nnueaffine/
func GetDataDir() (string, error) {
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
		// Check XDG_DATA_HOME first
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

// GetDatabaseDir returns the directory for the BadgerDB database:
// $NNUETOOL_DB if set, otherwise "db" under GetDataDir.
func GetDatabaseDir() (string, error) {
	if dir := os.Getenv(DBEnv); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	}

	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}
	return dbDir, nil
}
