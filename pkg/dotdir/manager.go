// Package dotdir locates the .kcore/ directory holding config.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the k-core directory.
const DirName = ".kcore"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .kcore/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.kcore/ dir
//  3. Home ~/.kcore/ dir
//
// If none exists and there is no override, Target returns "".
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating kcore directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if dir, ok := m.localDir(); ok {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, DirName)
	if isDir(dir) {
		return dir, nil
	}

	return "", nil
}

// Init creates a .kcore/ directory in the working directory when local is
// true, otherwise in the home directory, and returns its absolute path.
func (m *Manager) Init(local bool) (string, error) {
	var base string
	var err error
	if local {
		base, err = os.Getwd()
	} else {
		base, err = os.UserHomeDir()
	}
	if err != nil {
		return "", fmt.Errorf("resolving base directory: %w", err)
	}

	dir := filepath.Join(base, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating kcore directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

func (m *Manager) localDir() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	dir := filepath.Join(cwd, DirName)
	return dir, isDir(dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
