package identity

import (
	"context"
	"fmt"
)

// DefaultMaxLength is the client-id length budget used when no override is
// given. MQTT 3.1 brokers are only required to accept 23 bytes, so the
// default works everywhere.
const DefaultMaxLength = 23

// clientIDNamespace tags every client-id token with the identifier scheme
// and its format version. A future digest or sizing change bumps the
// version instead of silently re-keying deployed devices.
const clientIDNamespace = "mqtt-client.v1"

// Option configures a ClientID derivation.
type Option func(*deriveConfig)

// deriveConfig holds configuration for a single derivation.
type deriveConfig struct {
	instanceID  string
	hasInstance bool
	maxLength   int
	facts       FactSet
	hasFacts    bool
	collector   *Collector
}

// WithInstanceID separates parallel instances of the same application.
// Different instance IDs produce different client IDs, avoiding the broker
// disconnect loops caused by duplicate identifiers. The value is validated
// like the app name.
func WithInstanceID(id string) Option {
	return func(c *deriveConfig) {
		c.instanceID = id
		c.hasInstance = true
	}
}

// WithMaxLength overrides the identifier length budget.
// Must be at least 8. Default is DefaultMaxLength.
func WithMaxLength(n int) Option {
	return func(c *deriveConfig) {
		c.maxLength = n
	}
}

// WithFacts supplies the device facts directly and suppresses probing,
// even when the fact set is empty. Use this to derive identifiers for
// machines other than the one running the code.
func WithFacts(facts FactSet) Option {
	return func(c *deriveConfig) {
		c.facts = facts
		c.hasFacts = true
	}
}

// WithCollector replaces the probe used when no facts were supplied.
func WithCollector(collector *Collector) Option {
	return func(c *deriveConfig) {
		c.collector = collector
	}
}

// ClientID derives a deterministic, broker-safe MQTT client identifier
// for an application on this device.
//
// The composite seed is the device fingerprint joined with the validated
// app name, plus the instance ID when one is set. The identifier is the
// app name (truncated to the remaining budget) and a compact hash suffix:
//
//	sensor-bri-k3j2n4mp5q2a
//
// When the budget is too tight for any prefix, the identifier is the bare
// hash suffix. The result always matches ^[a-z0-9-]+$ and never exceeds
// the length budget.
//
// Validation failures (bad app name, bad instance ID, budget below 8)
// fail fast before any probing happens. Probe failures never surface:
// the fingerprint falls back through hardware facts to the hostname.
func ClientID(ctx context.Context, appName string, opts ...Option) (string, error) {
	cfg := deriveConfig{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&cfg)
	}

	app, err := ValidateComponent(appName, "app name")
	if err != nil {
		return "", err
	}
	var instance string
	if cfg.hasInstance {
		instance, err = ValidateComponent(cfg.instanceID, "instance id")
		if err != nil {
			return "", err
		}
	}
	if cfg.maxLength < 8 {
		return "", fmt.Errorf("%w: max length must be >= 8, got %d", ErrInvalidConfiguration, cfg.maxLength)
	}

	facts := cfg.facts
	if !cfg.hasFacts {
		collector := cfg.collector
		if collector == nil {
			collector = NewCollector()
		}
		facts = collector.Collect(ctx)
	}

	seed := ResolveFingerprint(facts) + seedSeparator + app
	if cfg.hasInstance {
		seed += seedSeparator + instance
	}

	hashLength := cfg.maxLength - 4
	if hashLength < 8 {
		hashLength = 8
	}
	if hashLength > 12 {
		hashLength = 12
	}
	suffix, err := CompactToken(seed, hashLength, clientIDNamespace)
	if err != nil {
		return "", err
	}

	budget := cfg.maxLength - len(suffix) - 1
	if budget <= 0 {
		return truncate(suffix, cfg.maxLength), nil
	}
	prefix := truncate(app, budget)
	if prefix == "" {
		return truncate(suffix, cfg.maxLength), nil
	}
	return truncate(prefix+"-"+suffix, cfg.maxLength), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
