package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds project, map and cluster identifiers.
const maxIDLength = 256

// ValidateID validates an identifier used as a project, map or cluster key.
// Identifiers end up in marker records, file names and metric labels, so the
// rules are conservative:
//   - No empty names
//   - No control characters
//   - No surrounding whitespace
//   - Maximum length of 256 characters
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "%s id too long (max %d characters)", kind, maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s id contains invalid control characters", kind)
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidInput, "%s id %q has surrounding whitespace", kind, id)
	}

	return nil
}

// ValidatePath validates an output path handed to the CLI or server.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
