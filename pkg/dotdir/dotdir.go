// Package dotdir resolves the .leadforge/ directory that holds the pipeline's
// config.toml and local data files (sqlite databases, backups).
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".leadforge"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to the .leadforge/ directory.
// Order of precedence:
//  1. Provided override
//  2. Local ./.leadforge/ dir
//  3. Home ~/.leadforge/ dir (created if missing)
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating leadforge directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists reports whether ./.leadforge/ exists in the working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
