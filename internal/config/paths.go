// Package config loads hostpilot settings and resolves its on-disk locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = ".hostpilot"

// DefaultConfigDir returns ~/.hostpilot.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, appDirName), nil
}

func inConfigDir(name string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// DefaultConfigPath returns ~/.hostpilot/config.yaml.
func DefaultConfigPath() (string, error) {
	return inConfigDir("config.yaml")
}

// DefaultDataPath returns the facts database path, ~/.hostpilot/facts.db.
func DefaultDataPath() (string, error) {
	return inConfigDir("facts.db")
}

// DefaultTrashDir returns the platform trash location used by files.empty_trash.
func DefaultTrashDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, ".Trash"), nil
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "Trash", "files"), nil
	}
	return filepath.Join(home, ".local", "share", "Trash", "files"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
