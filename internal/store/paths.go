package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// ensureParentDir creates the directory holding path if it doesn't exist.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create journal directory %s: %w", dir, err)
	}
	return nil
}
