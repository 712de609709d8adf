package sdk

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/steadymq/sdk/config"
	"github.com/steadymq/sdk/health"
	"github.com/steadymq/sdk/identity"
	"github.com/steadymq/sdk/telemetry"
	"github.com/steadymq/sdk/types"
)

// Message is a received MQTT message, identical for both protocol
// revisions.
type Message struct {
	// Topic the message was published to.
	Topic string

	// Payload is the raw message body.
	Payload []byte

	// QoS the message was delivered with.
	QoS types.QoS

	// Retained reports whether this is a retained message replayed by the
	// broker rather than a live publish.
	Retained bool
}

// Handler consumes received messages. Handlers run on the client's
// dispatch goroutine and should hand long work off.
type Handler func(msg Message)

// Connection is the protocol-independent surface both revisions provide.
// Code that does not care which revision it speaks can hold this instead
// of a concrete connection type.
type Connection interface {
	ClientID() string
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte, qos types.QoS, retained bool) error
	Subscribe(ctx context.Context, filter string, qos types.QoS, handler Handler) error
	Unsubscribe(ctx context.Context, filters ...string) error
	Close(ctx context.Context) error
}

// Connector derives a device-stable client identity and builds MQTT
// connections around it. Construct one per application with New, then
// build or connect protocol-specific connections from it.
//
// The connector is immutable after New and safe for concurrent use. Device
// facts are probed once, on first use, and shared by every derived client
// ID and connection.
type Connector struct {
	host   string
	app    string
	cfg    connectorConfig
	logger *slog.Logger
	tel    *telemetry.Telemetry

	probeOnce   sync.Once
	deviceFacts identity.FactSet
}

// New creates a Connector for the given broker host and application name.
//
// The app name becomes the visible prefix of the derived client ID and
// must be non-empty; its validation (letters, digits, hyphens) happens on
// first derivation. Transport-level options are validated here.
func New(host, appName string, opts ...Option) (*Connector, error) {
	cfg := connectorConfig{
		port:           1883,
		keepAlive:      60 * time.Second,
		maxIDLen:       identity.DefaultMaxLength,
		payloadOnline:  "online",
		payloadOffline: "offline",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if host == "" {
		return nil, NewValidationError("sdk.New", fmt.Errorf("%w: host must not be empty", ErrInvalidConfig))
	}
	if cfg.port < 1 || cfg.port > 65535 {
		return nil, NewValidationError("sdk.New", fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.port))
	}
	if cfg.keepAlive <= 0 {
		return nil, NewValidationError("sdk.New", fmt.Errorf("%w: keep-alive must be positive, got %v", ErrInvalidConfig, cfg.keepAlive))
	}
	if cfg.autoReconnect {
		if err := cfg.backoff.Validate(); err != nil {
			return nil, NewValidationError("sdk.New", fmt.Errorf("%w: reconnect backoff: %v", ErrInvalidConfig, err))
		}
	}
	if cfg.will != nil {
		if cfg.will.topic == "" {
			return nil, NewValidationError("sdk.New", fmt.Errorf("%w: last-will topic must not be empty", ErrInvalidConfig))
		}
		if err := cfg.will.qos.Validate(); err != nil {
			return nil, NewValidationError("sdk.New", fmt.Errorf("%w: last-will %v", ErrInvalidConfig, err))
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "connector", "app", appName)

	tel := cfg.telemetry
	if tel == nil && cfg.tracer != nil {
		var err error
		tel, err = telemetry.New(telemetry.Options{Tracer: cfg.tracer, Logger: logger})
		if err != nil {
			return nil, NewConfigurationError("sdk.New", err)
		}
	}

	return &Connector{
		host:   host,
		app:    appName,
		cfg:    cfg,
		logger: logger,
		tel:    tel,
	}, nil
}

// NewFromConfig creates a Connector from a loaded yaml configuration,
// taking the broker host and app name from the file. Extra options apply
// on top of the file's settings.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, NewValidationError("sdk.NewFromConfig", fmt.Errorf("%w: config must not be nil", ErrInvalidConfig))
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewValidationError("sdk.NewFromConfig", err)
	}
	return New(cfg.Host, cfg.AppName, append([]Option{WithConfig(cfg)}, opts...)...)
}

// facts returns the device facts, probing at most once. Explicitly
// supplied facts bypass the probe entirely.
func (c *Connector) facts(ctx context.Context) identity.FactSet {
	c.probeOnce.Do(func() {
		if c.cfg.facts != nil {
			c.deviceFacts = *c.cfg.facts
			return
		}

		collector := c.cfg.collector
		if collector == nil {
			collector = identity.NewCollector(identity.WithLogger(c.logger))
		}

		ctx, span := c.tel.StartSpan(ctx, "identity.probe")
		defer span.End()

		start := time.Now()
		c.deviceFacts = collector.Collect(ctx)
		c.tel.ObserveProbe(ctx, collector.Platform(), c.deviceFacts, time.Since(start))
	})
	return c.deviceFacts
}

// ClientID derives the MQTT client identifier every connection built from
// this connector uses. The value is deterministic: the same device, app
// name, and instance ID always produce the same identifier, and it matches
// what BuildV3 and BuildV5 hand to the broker.
func (c *Connector) ClientID(ctx context.Context) (string, error) {
	opts := []identity.Option{
		identity.WithFacts(c.facts(ctx)),
		identity.WithMaxLength(c.cfg.maxIDLen),
	}
	if c.cfg.instanceID != "" {
		opts = append(opts, identity.WithInstanceID(c.cfg.instanceID))
	}
	return identity.ClientID(ctx, c.app, opts...)
}

// Preflight checks whether this connector can do its job: the broker must
// accept TCP connections, and when device probing is in play the platform
// probe tools should be present. Missing probe tools degrade rather than
// fail, because identity falls back to the hostname.
func (c *Connector) Preflight(ctx context.Context) types.HealthStatus {
	checks := []types.HealthStatus{
		health.BrokerCheck(ctx, c.host, c.cfg.port),
	}

	if c.cfg.facts == nil {
		platform := identity.CurrentPlatform()
		if c.cfg.collector != nil {
			platform = c.cfg.collector.Platform()
		}
		checks = append(checks, health.ProbeToolsCheck(platform))
	}

	return health.Combine(checks...)
}

// Build assembles a connection for the given protocol revision without
// connecting it.
func (c *Connector) Build(ctx context.Context, proto types.Protocol) (Connection, error) {
	if err := proto.Validate(); err != nil {
		return nil, NewValidationError("Connector.Build", err)
	}
	if proto == types.ProtocolV3 {
		return c.BuildV3(ctx)
	}
	return c.BuildV5(ctx)
}

// Connect builds a connection for the given protocol revision and
// connects it.
func (c *Connector) Connect(ctx context.Context, proto types.Protocol) (Connection, error) {
	conn, err := c.Build(ctx, proto)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// Host returns the broker host the connector targets.
func (c *Connector) Host() string {
	return c.host
}

// Port returns the broker port the connector targets.
func (c *Connector) Port() int {
	return c.cfg.port
}

// AppName returns the application name the identity derives from.
func (c *Connector) AppName() string {
	return c.app
}

// InstanceID returns the configured instance ID, empty when unset.
func (c *Connector) InstanceID() string {
	return c.cfg.instanceID
}

// brokerTLS resolves the TLS configuration for a connection, or nil when
// TLS is disabled.
func (c *Connector) brokerTLS(op string) (*tls.Config, error) {
	if !c.cfg.tlsEnabled {
		return nil, nil
	}

	if c.cfg.tlsConfig != nil {
		return c.cfg.tlsConfig, nil
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.cfg.tlsCAFile != "" {
		caData, err := os.ReadFile(c.cfg.tlsCAFile)
		if err != nil {
			return nil, NewConfigurationError(op, fmt.Errorf("failed to read CA certificate: %w", err))
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caData) {
			return nil, NewConfigurationError(op, fmt.Errorf("failed to parse CA certificate %s", c.cfg.tlsCAFile))
		}
		tlsCfg.RootCAs = caPool
	}

	if c.cfg.tlsInsecure {
		c.logger.Warn("TLS certificate verification disabled")
		tlsCfg.InsecureSkipVerify = true
	}

	return tlsCfg, nil
}

// effectiveWill resolves which last-will message a connection registers:
// an explicit WithLastWill wins, otherwise the availability offline
// payload, otherwise none.
func (c *Connector) effectiveWill() *willMessage {
	if c.cfg.will != nil {
		return c.cfg.will
	}
	if c.cfg.availabilityTopic != "" {
		return &willMessage{
			topic:    c.cfg.availabilityTopic,
			payload:  c.cfg.payloadOffline,
			qos:      types.QoSAtLeastOnce,
			retained: true,
		}
	}
	return nil
}
