package sdk

import (
	"crypto/tls"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.opentelemetry.io/otel/trace"

	"github.com/steadymq/sdk/config"
	"github.com/steadymq/sdk/identity"
	"github.com/steadymq/sdk/telemetry"
	"github.com/steadymq/sdk/types"
)

// Option configures a Connector.
type Option func(*connectorConfig)

// willMessage describes a last-will registration.
type willMessage struct {
	topic    string
	payload  string
	qos      types.QoS
	retained bool
}

// connectorConfig holds configuration for a Connector instance.
type connectorConfig struct {
	port       int
	instanceID string
	persistent bool
	keepAlive  time.Duration
	maxIDLen   int

	username string
	password string

	availabilityTopic string
	payloadOnline     string
	payloadOffline    string
	will              *willMessage

	tlsConfig   *tls.Config
	tlsCAFile   string
	tlsInsecure bool
	tlsEnabled  bool

	autoReconnect bool
	backoff       types.BackoffConfig

	facts     *identity.FactSet
	collector *identity.Collector
	store     mqtt.Store

	logger    *slog.Logger
	telemetry *telemetry.Telemetry
	tracer    trace.Tracer
}

// WithPort sets the broker TCP port.
// Default is 1883 (8883 is conventional for TLS but not assumed).
func WithPort(port int) Option {
	return func(c *connectorConfig) {
		c.port = port
	}
}

// WithInstanceID separates parallel replicas of the same application.
// Each replica gets its own derived client ID, so the broker never sees
// duplicate identifiers. The value is validated like the app name.
func WithInstanceID(id string) Option {
	return func(c *connectorConfig) {
		c.instanceID = id
	}
}

// WithPersistentSession makes the broker retain subscriptions and queued
// QoS 1/2 messages across reconnects. This is the inverse of MQTT's
// clean-session flag. Default is false (clean sessions).
func WithPersistentSession(persistent bool) Option {
	return func(c *connectorConfig) {
		c.persistent = persistent
	}
}

// WithKeepAlive sets the interval of MQTT keep-alive pings.
// Default is 60 seconds.
func WithKeepAlive(interval time.Duration) Option {
	return func(c *connectorConfig) {
		c.keepAlive = interval
	}
}

// WithCredentials sets the broker login credentials.
func WithCredentials(username, password string) Option {
	return func(c *connectorConfig) {
		c.username = username
		c.password = password
	}
}

// WithAvailability declares a retained availability topic. The connection
// publishes "online" after connecting, "offline" before disconnecting, and
// registers "offline" as its last will, all at QoS 1 with the retain flag.
// Override the payloads with WithAvailabilityPayloads.
func WithAvailability(topic string) Option {
	return func(c *connectorConfig) {
		c.availabilityTopic = topic
	}
}

// WithAvailabilityPayloads overrides the availability payloads.
// Defaults are "online" and "offline".
func WithAvailabilityPayloads(online, offline string) Option {
	return func(c *connectorConfig) {
		c.payloadOnline = online
		c.payloadOffline = offline
	}
}

// WithLastWill registers an explicit last-will message. It takes precedence
// over the availability offline will when both are configured.
func WithLastWill(topic, payload string, qos types.QoS, retained bool) Option {
	return func(c *connectorConfig) {
		c.will = &willMessage{
			topic:    topic,
			payload:  payload,
			qos:      qos,
			retained: retained,
		}
	}
}

// WithTLS switches the connection to TLS using the provided configuration.
func WithTLS(cfg *tls.Config) Option {
	return func(c *connectorConfig) {
		c.tlsEnabled = true
		c.tlsConfig = cfg
	}
}

// WithTLSFromCA switches the connection to TLS, trusting the CA bundle at
// the given path. An empty path means the system trust store. Setting
// allowInsecure disables certificate verification; test brokers only.
func WithTLSFromCA(caFile string, allowInsecure bool) Option {
	return func(c *connectorConfig) {
		c.tlsEnabled = true
		c.tlsCAFile = caFile
		c.tlsInsecure = allowInsecure
	}
}

// WithAutoReconnect enables automatic reconnection for MQTT 3.1.1
// connections, backing off between the given bounds. Sub-second minimums
// are raised to one second. The 5.0 client always reconnects and uses the
// bounds only for its backoff ceiling.
func WithAutoReconnect(min, max time.Duration) Option {
	return func(c *connectorConfig) {
		c.autoReconnect = true
		c.backoff = types.BackoffConfig{Min: min, Max: max}
	}
}

// WithMaxClientIDLength overrides the derived client-id length budget.
// Must be at least 8. Default is 23, the length every MQTT 3.1 broker
// accepts.
func WithMaxClientIDLength(n int) Option {
	return func(c *connectorConfig) {
		c.maxIDLen = n
	}
}

// WithDeviceFacts supplies the device facts directly and suppresses
// probing, even when the fact set is empty. Use this to pin identity in
// tests or to derive IDs for another machine.
func WithDeviceFacts(facts identity.FactSet) Option {
	return func(c *connectorConfig) {
		f := facts
		c.facts = &f
	}
}

// WithFactCollector replaces the device probe used when no explicit facts
// were supplied.
func WithFactCollector(collector *identity.Collector) Option {
	return func(c *connectorConfig) {
		c.collector = collector
	}
}

// WithStore plugs a message store into the MQTT 3.1.1 client, replacing
// its in-memory default. Pair a Redis-backed store with persistent
// sessions so QoS 1/2 flows survive process restarts.
func WithStore(st mqtt.Store) Option {
	return func(c *connectorConfig) {
		c.store = st
	}
}

// WithLogger sets a custom logger for the connector.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *connectorConfig) {
		c.logger = logger
	}
}

// WithTelemetry wires OpenTelemetry instrumentation into the connector:
// probe spans and metrics, build counters.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(c *connectorConfig) {
		c.telemetry = tel
	}
}

// WithTracer sets an OpenTelemetry tracer for distributed tracing.
// This is a shorthand for WithTelemetry when only spans are wanted.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *connectorConfig) {
		c.tracer = tracer
	}
}

// WithConfig applies a loaded yaml configuration. The broker host and app
// name come from the constructor arguments (use NewFromConfig to take them
// from the file as well); everything else the file carries lands here.
// Options placed after WithConfig override it.
func WithConfig(cfg *config.Config) Option {
	return func(c *connectorConfig) {
		if cfg == nil {
			return
		}

		c.port = cfg.GetPort()
		c.persistent = cfg.PersistentSession
		c.keepAlive = cfg.GetKeepAlive()
		c.maxIDLen = cfg.GetMaxClientIDLength()
		if cfg.InstanceID != "" {
			c.instanceID = cfg.InstanceID
		}

		if cfg.Credentials != nil {
			c.username = cfg.Credentials.Username
			c.password = cfg.Credentials.Password
		}

		if cfg.TLS != nil && cfg.TLS.Enabled {
			c.tlsEnabled = true
			c.tlsCAFile = cfg.TLS.CACert
			c.tlsInsecure = cfg.TLS.AllowInsecure
		}

		if cfg.Availability != nil {
			c.availabilityTopic = cfg.Availability.Topic
			c.payloadOnline = cfg.Availability.GetPayloadOnline()
			c.payloadOffline = cfg.Availability.GetPayloadOffline()
		}

		if cfg.Reconnect != nil {
			c.autoReconnect = true
			c.backoff = cfg.Reconnect.Backoff()
		}
	}
}
