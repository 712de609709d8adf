package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// componentPattern is the full allowed alphabet for client-id components.
// Hyphens are permitted so app names like "sensor-bridge" read naturally;
// everything else would need broker-specific escaping.
var componentPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidateComponent checks an app name or instance ID used in client-id
// derivation and returns its canonical form.
//
// Rules:
//   - non-empty after trimming
//   - only letters, digits and '-'
//   - normalized to lowercase
//
// The label names the offending field in error messages. All failures
// wrap ErrInvalidComponent.
func ValidateComponent(value, label string) (string, error) {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidComponent, label)
	}
	if !componentPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %s may only contain letters, digits and '-'", ErrInvalidComponent, label)
	}
	return strings.ToLower(normalized), nil
}
