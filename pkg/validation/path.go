// Package validation provides input validation for names and paths that end
// up in archive file names, object keys and deletions.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Category names become part of file names and object keys:
// - Lowercase letters, digits, and separators (_, -)
// - Separators must not be adjacent and cannot start/end the name
var categoryNameRegex = regexp.MustCompile(`^[a-z0-9]+(?:[_-][a-z0-9]+)*$`)

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 64

// ValidateCategoryName validates a backup category name.
func ValidateCategoryName(name string) error {
	if name == "" {
		return fmt.Errorf("category name cannot be empty")
	}

	if len(name) > MaxCategoryNameLength {
		return fmt.Errorf("category name too long: %d chars (max %d)", len(name), MaxCategoryNameLength)
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("category name contains path traversal sequence")
	}

	if !categoryNameRegex.MatchString(name) {
		return fmt.Errorf("invalid category name format: must contain only lowercase letters, digits, and separators (_, -)")
	}

	return nil
}

// ExpandHome replaces a leading "~/" (or a lone "~") with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// ValidateSourceDir checks that path is an existing directory and returns
// its cleaned absolute form.
func ValidateSourceDir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("source directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source %s is not a directory", abs)
	}

	return abs, nil
}

// ValidatePath sanitizes and validates a relative path to prevent traversal attacks.
// Returns the cleaned path or an error if the path is unsafe.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed")
	}

	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("absolute paths not allowed")
	}

	return cleanPath, nil
}

// ValidatePathWithinRoot validates that a constructed path stays within the root directory.
// Both paths are made absolute first, so relative inputs compare correctly.
func ValidatePathWithinRoot(rootDir, fullPath string) error {
	cleanRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	cleanPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) && cleanPath != cleanRoot {
		return fmt.Errorf("path escapes root directory")
	}

	return nil
}
