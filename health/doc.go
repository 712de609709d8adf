// Package health provides preflight checks for broker connectivity and
// device probing.
//
// This package offers standardized ways to verify that a connector will be
// able to reach its broker and that the running platform can supply the
// device facts used for client identity derivation.
//
// # Health Check Functions
//
// The package provides five main health check functions:
//
//   - BrokerCheck: Verify TCP connectivity to a broker host:port
//   - CommandCheck: Verify a command exists in PATH
//   - PathCheck: Verify a file or directory exists
//   - ProbeToolsCheck: Verify the platform probe tools are available
//   - Combine: Aggregate multiple health checks into a single status
//
// # Usage Example
//
//	import (
//	    "context"
//	    "time"
//
//	    "github.com/steadymq/sdk/health"
//	    "github.com/steadymq/sdk/identity"
//	)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	overall := health.Combine(
//	    health.BrokerCheck(ctx, "broker.example.com", 1883),
//	    health.ProbeToolsCheck(identity.CurrentPlatform()),
//	    health.PathCheck("/etc/steadymq/steadymq.yaml"),
//	)
//
//	if overall.IsUnhealthy() {
//	    log.Printf("preflight failed: %s", overall.Message)
//	    log.Printf("details: %+v", overall.Details)
//	}
//
// # Health Status Priority
//
// When combining health checks with Combine(), the result follows this
// priority:
//
//   - Unhealthy: If any check is unhealthy, the combined result is unhealthy
//   - Degraded: If any check is degraded (and none unhealthy), the result is degraded
//   - Healthy: If all checks are healthy, the result is healthy
//
// # Degraded vs Unhealthy
//
// An unreachable broker is unhealthy: the connector cannot work at all.
// Missing probe tools are only degraded: fact collection is best-effort and
// the identity fingerprint falls back through hardware facts to the
// hostname, so the connector still functions with a weaker identity source.
//
// # Context and Timeouts
//
// BrokerCheck accepts a context for timeout and cancellation control.
// If nil is passed, a default 5-second timeout is used.
package health
