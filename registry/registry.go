// Package registry provides etcd-backed instance registration and discovery
// for MQTT applications.
//
// Every replica of an application derives its own client ID, and brokers
// disconnect whichever client reconnects with a duplicate. The registry
// closes the operational gap that creates: replicas register themselves under
// their app name, operators can list which client IDs are live, and replicas
// that need a stable instance ID can claim a numbered slot instead of having
// one assigned by a deployment tool.
//
// Entries are held by etcd leases with a TTL, so crashed replicas disappear
// from discovery (and release their claimed slots) without operator
// intervention. A background goroutine renews each lease every TTL/3.
package registry

import (
	"context"
	"time"
)

// Instance describes one registered application replica.
//
// Multiple replicas of the same application register concurrently, each with
// its own InstanceID and therefore its own derived client ID.
type Instance struct {
	// AppName is the application the replica belongs to (e.g., "sensor-bridge")
	AppName string `json:"app_name"`

	// InstanceID distinguishes this replica from its siblings (e.g., "worker-2")
	InstanceID string `json:"instance_id"`

	// ClientID is the MQTT client identifier the replica connects with
	ClientID string `json:"client_id"`

	// Metadata carries custom key-value attributes such as:
	//   - host: the machine the replica runs on
	//   - version: the application build
	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is the timestamp when this replica started
	StartedAt time.Time `json:"started_at"`
}

// Registry defines the instance registration and discovery interface.
//
// Implementations must be safe for concurrent use. Entries are tied to
// leases with a TTL so stale replicas age out automatically.
//
// Example usage:
//
//	reg, err := registry.NewClient(registry.Config{
//	    Endpoints: []string{"localhost:2379"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
//	slot, err := reg.AcquireInstanceID(ctx, "sensor-bridge", 8)
//	// slot is "worker-0" for the first replica, "worker-1" for the next.
//
//	inst := registry.Instance{
//	    AppName:    "sensor-bridge",
//	    InstanceID: slot,
//	    ClientID:   clientID,
//	    StartedAt:  time.Now(),
//	}
//	reg.Register(ctx, inst)
//	defer reg.Deregister(ctx, inst)
type Registry interface {
	// Register adds this replica to the registry.
	//
	// The replica is discoverable immediately and stays registered while its
	// lease is renewed. Re-registering with the same AppName and InstanceID
	// replaces the existing entry.
	Register(ctx context.Context, inst Instance) error

	// Deregister removes this replica from the registry by revoking its
	// lease. Deregistering a replica that was never registered is a no-op.
	Deregister(ctx context.Context, inst Instance) error

	// Instances lists the currently registered replicas of an application.
	// The slice may be empty; order is arbitrary.
	Instances(ctx context.Context, appName string) ([]Instance, error)

	// Watch returns a channel that receives the full replica list whenever
	// one registers, deregisters, or its lease expires. The current state is
	// sent immediately. The channel closes when the context is canceled or
	// the registry is closed.
	Watch(ctx context.Context, appName string) (<-chan []Instance, error)

	// AcquireInstanceID claims the lowest free numbered slot for an
	// application and returns its name ("worker-0" through
	// "worker-<maxSlots-1>"). The claim is held by a lease, so a crashed
	// replica frees its slot after the TTL. Returns an error when every
	// slot is taken.
	AcquireInstanceID(ctx context.Context, appName string, maxSlots int) (string, error)

	// ReleaseInstanceID gives a claimed slot back before shutdown. Releasing
	// a slot this client does not hold is a no-op.
	ReleaseInstanceID(ctx context.Context, appName, slot string) error

	// Close releases all resources, revoking nothing: entries expire via
	// their TTLs. After Close all other methods return errors.
	Close() error
}

// Config holds registry connection configuration.
type Config struct {
	// Endpoints is the list of etcd endpoints
	// Format: ["host1:2379", "host2:2379", "host3:2379"]
	Endpoints []string `json:"endpoints"`

	// Namespace is the etcd key prefix for all entries.
	// Replicas live under /{namespace}/instances/{app}/{instance-id} and
	// claimed slots under /{namespace}/claims/{app}/{slot}.
	// Default: "steadymq"
	Namespace string `json:"namespace"`

	// TTL is the lease time-to-live in seconds. Replicas must renew within
	// this interval or be removed.
	// Default: 30 seconds
	TTL int `json:"ttl"`

	// TLS holds TLS configuration for secure etcd communication.
	// If nil, TLS is disabled.
	TLS *TLSConfig `json:"tls"`
}

// TLSConfig holds TLS certificate configuration for mutual TLS with etcd.
type TLSConfig struct {
	// Enabled determines whether TLS is active.
	// If false, all other fields are ignored.
	Enabled bool `json:"enabled"`

	// CertFile is the path to the client certificate file (PEM format)
	CertFile string `json:"cert_file"`

	// KeyFile is the path to the client private key file (PEM format)
	KeyFile string `json:"key_file"`

	// CAFile is the path to the certificate authority file (PEM format)
	// used to verify the etcd server's certificate
	CAFile string `json:"ca_file"`
}
