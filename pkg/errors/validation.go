package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxCoordinateLength bounds a group or module name.
const maxCoordinateLength = 256

// coordinateRegex matches a single group or module name segment.
var coordinateRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._+-]*$`)

// ValidateCoordinate validates one part of a module coordinate (the group or
// the module name). It rejects names that could be used for path traversal
// or injection when a coordinate becomes a cache key or file name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - No ':' (the coordinate separator)
//   - Maximum length of 256 characters
func ValidateCoordinate(kind, value string) error {
	if value == "" {
		return New(ErrCodeInvalidModule, "%s cannot be empty", kind)
	}
	if len(value) > maxCoordinateLength {
		return New(ErrCodeInvalidModule, "%s too long (max %d characters)", kind, maxCoordinateLength)
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidModule, "%s contains invalid control characters", kind)
		}
	}
	for _, pattern := range []string{"..", "/", "\\", ":"} {
		if strings.Contains(value, pattern) {
			return New(ErrCodeInvalidModule, "%s contains invalid characters: %q", kind, pattern)
		}
	}
	if !coordinateRegex.MatchString(value) {
		return New(ErrCodeInvalidModule, "invalid %s: %q", kind, value)
	}
	return nil
}

// ValidateProjectPath validates a local project reference such as ":app" or
// ":libs:core". Paths are colon separated and must start with ':'.
func ValidateProjectPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "project path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "project path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "project path contains invalid characters")
		}
	}

	if !strings.HasPrefix(path, ":") {
		return New(ErrCodeInvalidPath, "project path must start with ':'")
	}
	if path == ":" {
		return nil
	}
	for _, seg := range strings.Split(path[1:], ":") {
		if seg == "" {
			return New(ErrCodeInvalidPath, "project path contains an empty segment: %q", path)
		}
		if strings.ContainsAny(seg, "/\\") || strings.Contains(seg, "..") {
			return New(ErrCodeInvalidPath, "project path cannot contain path separators: %q", path)
		}
	}
	return nil
}
