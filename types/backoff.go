package types

import (
	"fmt"
	"time"
)

// Reconnect backoff defaults shared by the connection builders.
const (
	// DefaultBackoffMin is the smallest delay before a reconnect attempt.
	DefaultBackoffMin = time.Second

	// DefaultBackoffMax caps the delay between reconnect attempts.
	DefaultBackoffMax = 30 * time.Second
)

// BackoffConfig bounds the delay between automatic reconnect attempts.
// The client starts at Min and backs off toward Max while the broker
// stays unreachable.
type BackoffConfig struct {
	// Min is the initial reconnect delay.
	// A zero value means use DefaultBackoffMin.
	Min time.Duration

	// Max is the ceiling for the reconnect delay.
	// A zero value means use DefaultBackoffMax.
	Max time.Duration
}

// Validate checks that the backoff configuration is internally consistent.
// It verifies that:
// - Neither bound is negative
// - If both bounds are set, Min <= Max
//
// Returns an error if the configuration is invalid.
func (c BackoffConfig) Validate() error {
	if c.Min < 0 {
		return fmt.Errorf("min backoff %v is negative", c.Min)
	}
	if c.Max < 0 {
		return fmt.Errorf("max backoff %v is negative", c.Max)
	}
	if c.Min > 0 && c.Max > 0 && c.Min > c.Max {
		return fmt.Errorf("min backoff %v exceeds max backoff %v", c.Min, c.Max)
	}
	return nil
}

// Resolve returns the effective bounds, substituting defaults for zero
// values and raising Min to one second. Sub-second initial delays hammer
// brokers that are refusing connections.
func (c BackoffConfig) Resolve() (min, max time.Duration) {
	min = c.Min
	if min <= 0 {
		min = DefaultBackoffMin
	}
	if min < time.Second {
		min = time.Second
	}
	max = c.Max
	if max <= 0 {
		max = DefaultBackoffMax
	}
	if max < min {
		max = min
	}
	return min, max
}
