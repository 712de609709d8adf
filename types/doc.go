// Package types provides core type definitions for the steadymq SDK.
//
// This package defines the small value types shared across the SDK: MQTT
// quality-of-service levels, the protocol revision selector, reconnect
// backoff bounds, and health status reporting for preflight checks.
//
// # QoS
//
// QoS wraps the three MQTT delivery guarantees and rejects everything else:
//
//	qos := types.QoSAtLeastOnce
//	if err := qos.Validate(); err != nil {
//	    log.Fatalf("invalid QoS: %v", err)
//	}
//
// # Protocol
//
// Protocol selects the MQTT revision a connection speaks:
//
//	if proto == types.ProtocolV5 {
//	    // Session expiry is negotiated via MQTT 5 properties.
//	}
//
// # Backoff
//
// BackoffConfig bounds automatic reconnect delays:
//
//	backoff := types.BackoffConfig{Min: time.Second, Max: 30 * time.Second}
//	if err := backoff.Validate(); err != nil {
//	    log.Fatalf("invalid backoff: %v", err)
//	}
//
// # Health Types
//
// Health types represent the operational status of preflight checks:
//
//	status := types.NewHealthyStatus("broker reachable")
//	if status.IsHealthy() {
//	    // Safe to connect.
//	}
//
//	degraded := types.NewDegradedStatus("bluetooth tooling missing", map[string]any{
//	    "binary": "btmgmt",
//	})
package types
