package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Client implements Registry backed by an etcd cluster.
//
// The client handles lease management automatically, renewing leases every
// TTL/3 to maintain replica presence. Registered entries and claimed slots
// both ride on leases, so a crashed process is purged from discovery and
// frees its slot within one TTL.
//
// Thread-safety: All methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	// Lease tracking for keepalive, keyed by etcd key
	mu         sync.RWMutex
	leases     map[string]clientv3.LeaseID
	cancelFns  map[string]context.CancelFunc
	wg         sync.WaitGroup // tracks background goroutines
	closed     bool
	closedChan chan struct{}
}

var _ Registry = (*Client)(nil)

// NewClient creates a registry client from the provided configuration.
//
// This establishes a connection to the etcd cluster and verifies
// connectivity with a health check. The client must be closed using Close()
// when no longer needed to release resources and stop background keepalive
// goroutines.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "steadymq"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	}

	tlsConfig, err := clientTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	clientCfg.TLS = tlsConfig

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Verify connectivity with a quick health check
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = cli.Get(ctx, "health-check")
	if err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:     cli,
		namespace:  namespace,
		ttl:        ttl,
		leases:     make(map[string]clientv3.LeaseID),
		cancelFns:  make(map[string]context.CancelFunc),
		closedChan: make(chan struct{}),
	}, nil
}

// NewClientFromEnv creates a registry client using the
// STEADYMQ_REGISTRY_ENDPOINTS environment variable.
//
// The variable holds a comma-separated list of etcd endpoints:
//
//	STEADYMQ_REGISTRY_ENDPOINTS=localhost:2379,localhost:2380
//
// If the variable is not set, this returns (nil, nil) so applications work
// without registry integration. That is NOT an error - the application
// functions but isn't discoverable.
func NewClientFromEnv() (*Client, error) {
	endpoints := os.Getenv("STEADYMQ_REGISTRY_ENDPOINTS")
	if endpoints == "" {
		// Not an error - the application works but isn't registered
		return nil, nil
	}

	endpointList := strings.Split(endpoints, ",")
	for i, ep := range endpointList {
		endpointList[i] = strings.TrimSpace(ep)
	}

	return NewClient(Config{
		Endpoints: endpointList,
		Namespace: "steadymq",
		TTL:       30,
	})
}

// Register adds this replica to the registry.
//
// The replica is discoverable immediately and remains registered as long as
// the lease is kept alive. A background goroutine renews the lease every
// TTL/3 seconds. Re-registering with the same AppName and InstanceID
// replaces the entry and restarts the keepalive.
func (c *Client) Register(ctx context.Context, inst Instance) error {
	if inst.AppName == "" {
		return fmt.Errorf("app name cannot be empty")
	}
	if inst.InstanceID == "" {
		return fmt.Errorf("instance ID cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	key := c.instanceKey(inst.AppName, inst.InstanceID)

	// Cancel existing keepalive if re-registering
	if cancelFn, exists := c.cancelFns[key]; exists {
		cancelFn()
		delete(c.cancelFns, key)
	}

	leaseResp, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	_, err = c.client.Put(ctx, key, string(data), clientv3.WithLease(leaseResp.ID))
	if err != nil {
		return fmt.Errorf("failed to register instance: %w", err)
	}

	c.trackLease(key, leaseResp.ID)
	return nil
}

// Deregister removes this replica from the registry.
//
// This revokes the etcd lease, which immediately deletes the entry, and
// stops the background keepalive goroutine. Deregistering a replica that
// was never registered is a no-op.
func (c *Client) Deregister(ctx context.Context, inst Instance) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	return c.dropLease(ctx, c.instanceKey(inst.AppName, inst.InstanceID))
}

// Instances lists the currently registered replicas of an application.
func (c *Client) Instances(ctx context.Context, appName string) ([]Instance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	return c.fetchInstances(ctx, appName)
}

// fetchInstances queries etcd without touching the client mutex so the
// watch goroutine can reuse it.
func (c *Client) fetchInstances(ctx context.Context, appName string) ([]Instance, error) {
	prefix := fmt.Sprintf("/%s/instances/%s/", c.namespace, appName)

	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			// Skip invalid entries
			continue
		}
		instances = append(instances, inst)
	}

	return instances, nil
}

// Watch returns a channel that receives the replica list whenever one
// registers, deregisters, or its lease expires. The current state is sent
// immediately. The channel closes when the context is canceled or Close()
// is called.
func (c *Client) Watch(ctx context.Context, appName string) (<-chan []Instance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	ch := make(chan []Instance, 1)

	// Send initial state
	instances, err := c.fetchInstances(ctx, appName)
	if err != nil {
		return nil, err
	}
	ch <- instances

	prefix := fmt.Sprintf("/%s/instances/%s/", c.namespace, appName)
	watchChan := c.client.Watch(ctx, prefix, clientv3.WithPrefix())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}
				if watchResp.Err() != nil {
					return
				}

				// Fetch current state after any change
				instances, err := c.fetchInstances(context.Background(), appName)
				if err != nil {
					// Skip this update if we can't query
					continue
				}

				select {
				case ch <- instances:
				case <-ctx.Done():
					return
				case <-c.closedChan:
					return
				}
			}
		}
	}()

	return ch, nil
}

// slotClaim is the value stored under a claimed slot key.
type slotClaim struct {
	AppName   string    `json:"app_name"`
	Slot      string    `json:"slot"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// AcquireInstanceID claims the lowest free numbered slot for an application.
//
// Slots are named "worker-0" through "worker-<maxSlots-1>". Each claim is a
// transactional create: the slot key must not exist, and the put rides on a
// lease, so two replicas racing for the same slot cannot both win and a
// crashed holder frees its slot after the TTL. A background goroutine
// renews the claim lease every TTL/3 seconds.
//
// Returns an error when all slots are taken.
func (c *Client) AcquireInstanceID(ctx context.Context, appName string, maxSlots int) (string, error) {
	if appName == "" {
		return "", fmt.Errorf("app name cannot be empty")
	}
	if maxSlots < 1 {
		return "", fmt.Errorf("max slots must be at least 1, got %d", maxSlots)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", fmt.Errorf("registry client is closed")
	}

	leaseResp, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to create lease: %w", err)
	}

	for i := 0; i < maxSlots; i++ {
		slot := fmt.Sprintf("worker-%d", i)
		key := c.claimKey(appName, slot)

		data, err := json.Marshal(slotClaim{
			AppName:   appName,
			Slot:      slot,
			ClaimedAt: time.Now().UTC(),
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal slot claim: %w", err)
		}

		// Create the key only if nobody holds it
		txn, err := c.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, string(data), clientv3.WithLease(leaseResp.ID))).
			Commit()
		if err != nil {
			return "", fmt.Errorf("failed to claim slot %s: %w", slot, err)
		}

		if txn.Succeeded {
			c.trackLease(key, leaseResp.ID)
			return slot, nil
		}
	}

	// Nothing claimed; don't leave the lease dangling
	if _, err := c.client.Revoke(ctx, leaseResp.ID); err != nil {
		return "", fmt.Errorf("no free instance slot for %s (and lease cleanup failed: %v)", appName, err)
	}
	return "", fmt.Errorf("no free instance slot for %s: all %d slots are claimed", appName, maxSlots)
}

// ReleaseInstanceID gives a claimed slot back before shutdown by revoking
// its lease. Releasing a slot this client does not hold is a no-op.
func (c *Client) ReleaseInstanceID(ctx context.Context, appName, slot string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	return c.dropLease(ctx, c.claimKey(appName, slot))
}

// Close releases all resources and stops background goroutines.
//
// Leases are not revoked here: entries and slot claims expire via their
// TTLs. After Close() all other methods return errors.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	// Cancel all keepalive goroutines
	for _, cancel := range c.cancelFns {
		cancel()
	}
	c.cancelFns = make(map[string]context.CancelFunc)

	close(c.closedChan)
	c.mu.Unlock()

	// Wait for all goroutines to finish
	c.wg.Wait()

	return c.client.Close()
}

// trackLease records a lease and starts its keepalive goroutine.
// Callers hold the write lock.
func (c *Client) trackLease(key string, leaseID clientv3.LeaseID) {
	c.leases[key] = leaseID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[key] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, leaseID, key)
}

// dropLease stops a lease's keepalive and revokes it, deleting whatever the
// lease held. Unknown keys are a no-op. Callers hold the write lock.
func (c *Client) dropLease(ctx context.Context, key string) error {
	if cancelFn, exists := c.cancelFns[key]; exists {
		cancelFn()
		delete(c.cancelFns, key)
	}

	leaseID, exists := c.leases[key]
	if !exists {
		return nil
	}

	if _, err := c.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}

	delete(c.leases, key)
	return nil
}

// keepalive renews the lease every TTL/3 seconds to maintain presence.
//
// This runs in a background goroutine started by trackLease. It stops when:
//   - The context is canceled (via Deregister, ReleaseInstanceID, or Close)
//   - The lease becomes invalid
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID, key string) {
	defer c.wg.Done()

	interval := time.Duration(c.ttl) * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closedChan:
			return
		case <-ticker.C:
			_, err := c.client.KeepAliveOnce(context.Background(), leaseID)
			if err != nil {
				// Lease is invalid, stop keepalive
				c.mu.Lock()
				delete(c.leases, key)
				delete(c.cancelFns, key)
				c.mu.Unlock()
				return
			}
		}
	}
}

// instanceKey constructs the etcd key for a replica.
//
// Format: /namespace/instances/app/instance-id
func (c *Client) instanceKey(appName, instanceID string) string {
	return fmt.Sprintf("/%s/instances/%s/%s", c.namespace, appName, instanceID)
}

// claimKey constructs the etcd key for a claimed slot.
//
// Format: /namespace/claims/app/slot
func (c *Client) claimKey(appName, slot string) string {
	return fmt.Sprintf("/%s/claims/%s/%s", c.namespace, appName, slot)
}
