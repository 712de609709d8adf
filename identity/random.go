package identity

import (
	"strings"

	"github.com/google/uuid"
)

// RandomClientID returns a fresh identifier within the default length
// budget. Unlike ClientID it is not stable across calls, which makes it
// unsuitable for persistent sessions; use it for tests and throwaway
// tooling where a collision-free identifier is all that matters.
func RandomClientID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return truncate(id, DefaultMaxLength)
}
