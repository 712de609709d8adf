package identity

import "errors"

// Sentinel errors for identity derivation failures.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidComponent indicates an app name or instance ID failed the
	// client-id alphabet or emptiness checks.
	ErrInvalidComponent = errors.New("invalid client id component")

	// ErrInvalidConfiguration indicates the derivation was invoked with
	// unusable parameters (length bounds, empty seeds, blank namespaces).
	ErrInvalidConfiguration = errors.New("invalid identity configuration")
)
