// Package security validates filesystem paths received over the API so a
// request cannot point the archive parser at arbitrary files on the host.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateArchivePath checks that path resolves inside one of the allowed
// directories. Symlinks are resolved first so a link cannot smuggle the path
// out of an allowed root. An empty allow-list permits any path (single-user
// CLI deployments).
func ValidateArchivePath(path string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return nil
	}
	for _, dir := range allowedDirs {
		if dir == "" {
			continue
		}
		if err := withinDirectory(path, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("archive path %q is outside the allowed directories %v", path, allowedDirs)
}

// withinDirectory reports whether path, after resolving symlinks, stays under
// dir. The directory must exist; the path itself may not yet.
func withinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve directory symlinks: %w", err)
	}
	canonicalPath := resolveExistingPrefix(absPath)

	rel, err := filepath.Rel(canonicalDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %q escapes %q", path, dir)
	}
	return nil
}

// resolveExistingPrefix resolves symlinks in the longest existing ancestor of
// absPath and rejoins the remaining components. This catches links in parent
// directories even when the final file has not been written yet.
func resolveExistingPrefix(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for ancestor := filepath.Dir(absPath); ; ancestor = filepath.Dir(ancestor) {
		if resolved, err := filepath.EvalSymlinks(ancestor); err == nil {
			rel, relErr := filepath.Rel(ancestor, absPath)
			if relErr != nil {
				return absPath
			}
			return filepath.Join(resolved, rel)
		}
		if filepath.Dir(ancestor) == ancestor {
			return absPath
		}
	}
}
