package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SafeJoin joins name below root, or returns "" when name would escape it.
func SafeJoin(root, name string) string {
	cleanTarget := filepath.Clean(name)
	if cleanTarget == "." || filepath.IsAbs(cleanTarget) {
		return ""
	}
	for _, part := range strings.Split(filepath.ToSlash(cleanTarget), "/") {
		if part == ".." {
			return ""
		}
	}
	return filepath.Join(root, cleanTarget)
}

func ensureDir(dir string) (bool, error) {
	if _, err := os.Stat(dir); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return true, nil
}

func writeFile(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
