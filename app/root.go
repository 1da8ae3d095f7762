package app

import (
	"os"
	"path/filepath"
)

// FindProjectRoot walks up from start to the first directory holding a
// go.mod. When none is found it returns start itself.
func FindProjectRoot(start string) string {
	dir := filepath.Clean(start)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Clean(start)
		}
		dir = parent
	}
}
