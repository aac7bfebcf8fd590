package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds attribute names, render argument names and plugin names.
const maxNameLength = 256

// ValidateAttributeName validates an attribute or render argument name.
//
// Graphviz accepts arbitrary attribute names, so the rules only reject input
// that cannot round-trip through a DOT file:
//   - No empty names
//   - No control characters or null bytes
//   - Maximum length of 256 characters
func ValidateAttributeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "attribute name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "attribute name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "attribute name contains invalid control characters")
		}
	}

	return nil
}

// pluginNameRegex matches Graphviz plugin identifiers such as "svg", "png:cairo" or "dot".
var pluginNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_+-]*(:[a-z0-9_+-]+)*$`)

// ValidateFormat validates an output format (render device plugin) name.
// It only checks syntax; whether the engine provides the plugin is decided
// by the render pipeline.
func ValidateFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if len(format) > maxNameLength || !pluginNameRegex.MatchString(format) {
		return New(ErrCodeInvalidFormat, "invalid format: %q", format)
	}
	return nil
}

// ValidateEngineName validates a layout engine name ("dot", "neato", ...).
func ValidateEngineName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "layout engine name cannot be empty")
	}
	if len(name) > maxNameLength || !pluginNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid layout engine name: %q", name)
	}
	return nil
}

// ValidatePath validates a relative output path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
