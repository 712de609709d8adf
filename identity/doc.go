// Package identity derives stable, broker-safe MQTT client identifiers
// from device hardware facts.
//
// The pipeline has four stages: a best-effort fact probe collects a serial
// number and hardware addresses from the running platform, a fingerprint
// resolver reduces them to a single stable seed, a token hasher turns the
// seed into a fixed-alphabet compact token, and a composer assembles the
// final identifier within the broker's length budget.
//
// # Deriving a client ID
//
// ClientID is the main entry point. With no options it probes the local
// device and composes an identifier from the strongest fact it finds:
//
//	id, err := identity.ClientID(ctx, "sensor-bridge")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// e.g. "sensor-bri-k3j2n4mp5q2a"
//
// When several instances of the same application share a broker, give each
// one an instance ID so their identifiers never collide:
//
//	id, err := identity.ClientID(ctx, "sensor-bridge",
//	    identity.WithInstanceID("worker1"),
//	)
//
// Derivation is deterministic: the same device, application and instance
// always produce the same identifier, across processes and restarts.
//
// # Supplying facts directly
//
// Probing can be bypassed entirely by handing the pipeline a FactSet, which
// is how fleet provisioning tools derive identifiers for other machines:
//
//	id, err := identity.ClientID(ctx, "sensor-bridge",
//	    identity.WithFacts(identity.FactSet{Serial: "C02XL0GZJGH5"}),
//	)
//
// Any explicitly supplied FactSet, even an empty one, suppresses the probe.
//
// # Probing
//
// Collector runs the platform probe on demand. All probe failures are
// non-fatal: a missing tool, an unreadable sysfs file or a malformed output
// only shrink the fact set, they never surface as errors. An empty fact set
// still yields an identifier through the hostname fallback chain.
//
//	facts := identity.NewCollector().Collect(ctx)
//
// # Tokens
//
// CompactToken and URLSafeToken are the deterministic hashing primitives
// underneath ClientID. They are exported for callers that need stable
// derived names elsewhere (queue names, file names, topic segments):
//
//	token, err := identity.CompactToken("payload-cache", 12, "steadymq")
package identity
