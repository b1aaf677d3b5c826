package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxIDLength    = 128
	maxTitleLength = 500
	maxKindLength  = 50
)

// ValidateID validates an item identifier for safety and correctness.
// Identifiers are used as storage keys (sqlite rows, badger keys, redis hash
// fields) and in DOT output, so the rules are conservative:
//   - No empty IDs
//   - No whitespace or control characters
//   - No path separators or null bytes
//   - Maximum length of 128 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "item id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "item id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "item id %q contains whitespace or control characters", id)
		}
	}

	if strings.ContainsAny(id, "/\\\x00") {
		return New(ErrCodeInvalidInput, "item id %q contains path separators", id)
	}

	return nil
}

// ValidateTitle validates an item title. Titles are free text but must be
// non-empty after trimming and reasonably short.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return New(ErrCodeInvalidInput, "title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return New(ErrCodeInvalidInput, "title too long (max %d characters)", maxTitleLength)
	}
	return nil
}

// ValidatePriority validates a priority value (0 = highest, 4 = lowest).
func ValidatePriority(p int) error {
	if p < 0 || p > 4 {
		return New(ErrCodeInvalidInput, "priority must be between 0 and 4, got %d", p)
	}
	return nil
}

// kindRegex matches edge kind strings such as "blocks" or "discovered-from".
var kindRegex = regexp.MustCompile(`^[a-z][a-z0-9_:-]*$`)

// ValidateKind validates an edge kind string. Unknown kinds are allowed (they
// are treated as non-blocking annotations) but must be well formed.
func ValidateKind(kind string) error {
	if kind == "" {
		return New(ErrCodeInvalidKind, "edge kind cannot be empty")
	}
	if len(kind) > maxKindLength {
		return New(ErrCodeInvalidKind, "edge kind too long (max %d characters)", maxKindLength)
	}
	if !kindRegex.MatchString(kind) {
		return New(ErrCodeInvalidKind, "invalid edge kind: %q", kind)
	}
	return nil
}
