package connector

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxPluginIDLen is the maximum length of a plugin id.
	MaxPluginIDLen = 128

	// MaxDescriptionLen is the maximum length of a plugin description.
	MaxDescriptionLen = 1024
)

// validIDPattern matches valid plugin ids.
// Must start with letter, contain only alphanumeric, underscore, hyphen, dot.
var validIDPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.\-]*$`)

// ValidatePluginID validates a host-assigned plugin id. The id names the
// properties file on disk, so path separators and traversal are rejected.
func ValidatePluginID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: plugin id cannot be empty", ErrInvalidConfig)
	}

	if len(id) > MaxPluginIDLen {
		return fmt.Errorf("%w: plugin id too long: %d bytes (max: %d)", ErrInvalidConfig, len(id), MaxPluginIDLen)
	}

	if !validIDPattern.MatchString(id) {
		return fmt.Errorf("%w: plugin id %q contains invalid characters (must match: %s)", ErrInvalidConfig, id, validIDPattern.String())
	}

	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: plugin id contains path traversal characters: %s", ErrInvalidConfig, id)
	}

	return nil
}

// ValidateDescription validates a human-readable plugin description.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description too long: %d bytes (max: %d)", ErrInvalidConfig, len(description), MaxDescriptionLen)
	}

	// Check for null bytes
	if strings.Contains(description, "\x00") {
		return fmt.Errorf("%w: description contains null bytes", ErrInvalidConfig)
	}

	return nil
}
