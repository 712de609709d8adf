// Package store provides a Redis-backed session store for MQTT clients.
//
// MQTT QoS 1 and 2 message flows require both sides to retain in-flight
// packets until the handshake completes. The default in-memory store loses
// those packets when the process restarts, which breaks persistent sessions
// for exactly the clients that care about them. RedisStore keeps the
// packets in Redis instead, keyed by the stable client ID, so a restarted
// process resumes its session where it left off.
//
// # Redis Key Schema
//
// Each packet is stored under:
//
//	steadymq:store:<client-id>:<packet-key>
//
// where <packet-key> is the key the MQTT client assigns (e.g. "o.1" for an
// outbound message with ID 1). Stores for different client IDs never
// collide, so many clients can share one Redis instance.
//
// # Usage
//
//	st, err := store.NewRedisStore(clientID, store.Options{
//		URL: "redis://localhost:6379",
//	})
//	if err != nil {
//		return err
//	}
//	defer st.Shutdown()
//
// The store plugs into the client options of an MQTT connection; the
// client drives Open, Put, Get, Del, All, Reset, and Close itself.
//
// # Lifecycle
//
// Open and Close bracket a single connection cycle and may be called many
// times over the life of the store. Shutdown releases the Redis connection
// and is terminal.
//
// # Thread Safety
//
// RedisStore is safe for concurrent use by multiple goroutines.
package store
