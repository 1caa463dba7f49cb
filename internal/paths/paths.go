// Package paths converts user-supplied file paths to the project-relative
// form used by trackers and server file keys.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectRelative converts path to an OS-specific path relative to
// projectRoot. Absolute paths are resolved through symlinks and must lie
// inside the project; relative paths are taken as project-relative already.
func ProjectRelative(path string, projectRoot string) (string, error) {
	if !filepath.IsAbs(path) {
		rel := filepath.Clean(filepath.FromSlash(path))
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("path %q escapes the project root", path)
		}
		return rel, nil
	}

	resolved, err := evalSymlinks(path)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalSymlinks(projectRoot)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside project root %q", path, projectRoot)
	}
	return rel, nil
}

// evalSymlinks resolves symlinks, keeping paths that do not exist yet as-is.
func evalSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(path), nil
		}
		return "", err
	}
	return resolved, nil
}

// ProjectRelativeAll converts every path, stopping at the first error.
func ProjectRelativeAll(paths []string, projectRoot string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := ProjectRelative(p, projectRoot)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}
