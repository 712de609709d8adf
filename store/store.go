package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces all session-store keys in Redis.
const keyPrefix = "steadymq:store:"

// Options configures the Redis connection backing a session store.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// Logger receives store errors. The Store interface cannot return them.
	Logger *slog.Logger
}

// RedisStore persists in-flight MQTT packets in Redis, keyed by client ID.
// A client that reconnects with persistent sessions enabled resumes QoS 1
// and 2 message flows from here, surviving process restarts that would wipe
// an in-memory store.
//
// RedisStore implements the paho Store interface. Open and Close mark the
// store active for a connection cycle; Shutdown releases the Redis
// connection itself.
type RedisStore struct {
	sync.RWMutex
	client *redis.Client
	prefix string
	logger *slog.Logger
	opened bool
}

var _ mqtt.Store = (*RedisStore)(nil)

// NewRedisStore creates a session store for the given client ID. The store
// verifies connectivity before returning; packets written by a previous
// process under the same client ID remain visible.
func NewRedisStore(clientID string, opts Options) (*RedisStore, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID must not be empty")
	}

	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: keyPrefix + clientID + ":",
		logger: opts.Logger.With("component", "store", "client_id", clientID),
	}, nil
}

// Open marks the store active. The MQTT client calls this when a
// connection cycle begins.
func (s *RedisStore) Open() {
	s.Lock()
	defer s.Unlock()
	s.opened = true
}

// Put stores a control packet under the given key.
func (s *RedisStore) Put(key string, message packets.ControlPacket) {
	s.RLock()
	defer s.RUnlock()
	if !s.opened {
		s.logger.Warn("put on closed store", "key", key)
		return
	}

	var buf bytes.Buffer
	if err := message.Write(&buf); err != nil {
		s.logger.Error("failed to serialize packet", "key", key, "error", err)
		return
	}

	if err := s.client.Set(context.Background(), s.prefix+key, buf.Bytes(), 0).Err(); err != nil {
		s.logger.Error("failed to store packet", "key", key, "error", err)
	}
}

// Get retrieves the control packet stored under the given key, or nil if
// the key does not exist.
func (s *RedisStore) Get(key string) packets.ControlPacket {
	s.RLock()
	defer s.RUnlock()
	if !s.opened {
		s.logger.Warn("get on closed store", "key", key)
		return nil
	}

	data, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("failed to fetch packet", "key", key, "error", err)
		}
		return nil
	}

	packet, err := packets.ReadPacket(bytes.NewReader(data))
	if err != nil {
		s.logger.Error("failed to decode stored packet", "key", key, "error", err)
		return nil
	}

	return packet
}

// All returns the keys of every stored packet for this client ID.
func (s *RedisStore) All() []string {
	s.RLock()
	defer s.RUnlock()
	if !s.opened {
		s.logger.Warn("all on closed store")
		return nil
	}

	keys, err := s.scanKeys()
	if err != nil {
		s.logger.Error("failed to list stored packets", "error", err)
		return nil
	}

	stripped := make([]string, 0, len(keys))
	for _, k := range keys {
		stripped = append(stripped, strings.TrimPrefix(k, s.prefix))
	}
	return stripped
}

// Del removes the packet stored under the given key.
func (s *RedisStore) Del(key string) {
	s.RLock()
	defer s.RUnlock()
	if !s.opened {
		s.logger.Warn("del on closed store", "key", key)
		return
	}

	if err := s.client.Del(context.Background(), s.prefix+key).Err(); err != nil {
		s.logger.Error("failed to delete packet", "key", key, "error", err)
	}
}

// Close marks the store inactive. The Redis connection stays up so the
// next connection cycle can reopen the store; use Shutdown to release it.
func (s *RedisStore) Close() {
	s.Lock()
	defer s.Unlock()
	s.opened = false
}

// Reset removes all stored packets for this client ID.
func (s *RedisStore) Reset() {
	s.RLock()
	defer s.RUnlock()
	if !s.opened {
		s.logger.Warn("reset on closed store")
		return
	}

	keys, err := s.scanKeys()
	if err != nil {
		s.logger.Error("failed to list stored packets", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := s.client.Del(context.Background(), keys...).Err(); err != nil {
		s.logger.Error("failed to reset store", "error", err)
	}
}

// Shutdown closes the underlying Redis connection. The store must not be
// used afterwards.
func (s *RedisStore) Shutdown() error {
	s.Lock()
	defer s.Unlock()
	s.opened = false
	return s.client.Close()
}

// scanKeys returns the full Redis keys belonging to this client ID.
// Callers hold at least a read lock.
func (s *RedisStore) scanKeys() ([]string, error) {
	var keys []string
	iter := s.client.Scan(context.Background(), 0, s.prefix+"*", 0).Iterator()
	for iter.Next(context.Background()) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
