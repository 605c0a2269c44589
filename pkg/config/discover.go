package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-project directory holding config, plans and layout state.
const DirName = ".planview"

// DetectProjectRoot finds the current project by walking up from the working
// directory looking for .planview/.
func DetectProjectRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findProjectRoot(dir)
}

// findProjectRoot walks up from dir looking for a .planview/ directory.
func findProjectRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// ProjectRoot returns the detected project root, or the working directory
// when no .planview/ exists above it.
func ProjectRoot() string {
	if root, ok := DetectProjectRoot(); ok {
		return root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
