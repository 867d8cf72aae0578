// Package security keeps file access inside the directories the server was
// configured with.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines paths to a set of root directories. The first
// root resolves relative paths.
type PathValidator struct {
	roots []string
}

// NewPathValidator creates a validator for the given roots. Empty entries
// and duplicates are ignored; at least one root is required.
func NewPathValidator(roots ...string) (*PathValidator, error) {
	v := &PathValidator{}
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve directory %s: %w", r, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		v.roots = append(v.roots, abs)
	}
	if len(v.roots) == 0 {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	return v, nil
}

// Roots returns the configured directories
func (v *PathValidator) Roots() []string {
	return append([]string(nil), v.roots...)
}

// GetConfiguredDirectory returns the primary directory
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.roots[0]
}

// Resolve turns path into a cleaned absolute path inside one of the roots.
// Relative paths are taken from the primary directory; NUL bytes are
// rejected.
func (v *PathValidator) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains a NUL byte")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.roots[0], path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !v.IsPathWithinDirectory(abs) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}
	return abs, nil
}

// ValidatePath checks that path lies inside one of the roots
func (v *PathValidator) ValidatePath(path string) error {
	_, err := v.Resolve(path)
	return err
}

// ValidateDirectory checks that dir lies inside a root and, when it exists,
// is a directory
func (v *PathValidator) ValidateDirectory(dir string) error {
	abs, err := v.Resolve(dir)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

// IsPathWithinDirectory reports whether the absolute path lies inside a
// root. Symlinks are followed on both sides so a link cannot escape.
func (v *PathValidator) IsPathWithinDirectory(path string) bool {
	clean := filepath.Clean(path)
	resolved := realPath(clean)

	for _, root := range v.roots {
		realRoot := realPath(root)
		if within(clean, root, realRoot) && within(resolved, root, realRoot) {
			return true
		}
	}
	return false
}

func within(path string, dirs ...string) bool {
	for _, d := range dirs {
		if path == d || strings.HasPrefix(path, strings.TrimSuffix(d, string(filepath.Separator))+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// realPath resolves symlinks of the longest existing prefix of path
func realPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(realPath(parent), filepath.Base(path))
}
