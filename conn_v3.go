package sdk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/steadymq/sdk/types"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work
// before dropping the network connection.
const disconnectQuiesce = 250 * time.Millisecond

// ConnectionV3 is an MQTT 3.1.1 connection. Build one with
// Connector.BuildV3, or use Connector.ConnectV3 to build and connect in
// one step.
type ConnectionV3 struct {
	client   mqtt.Client
	clientID string

	availabilityTopic string
	payloadOffline    string

	logger *slog.Logger
}

var _ Connection = (*ConnectionV3)(nil)

// BuildV3 derives the client ID and assembles a 3.1.1 connection without
// connecting it. The returned connection carries the connector's
// credentials, TLS settings, session persistence, last will, and message
// store.
func (c *Connector) BuildV3(ctx context.Context) (*ConnectionV3, error) {
	const op = "Connector.BuildV3"

	clientID, err := c.ClientID(ctx)
	if err != nil {
		return nil, err
	}

	tlsCfg, err := c.brokerTLS(op)
	if err != nil {
		return nil, err
	}

	scheme := "tcp"
	if tlsCfg != nil {
		scheme = "ssl"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, c.host, c.cfg.port))
	opts.SetClientID(clientID)
	opts.SetKeepAlive(c.cfg.keepAlive)
	opts.SetCleanSession(!c.cfg.persistent)

	// The library reconnects by default; only WithAutoReconnect opts in.
	opts.SetAutoReconnect(c.cfg.autoReconnect)
	if c.cfg.autoReconnect {
		_, maxDelay := c.cfg.backoff.Resolve()
		opts.SetMaxReconnectInterval(maxDelay)
	}

	if c.cfg.username != "" {
		opts.SetUsername(c.cfg.username)
		opts.SetPassword(c.cfg.password)
	}
	if tlsCfg != nil {
		opts.SetTLSConfig(tlsCfg)
	}
	if will := c.effectiveWill(); will != nil {
		opts.SetWill(will.topic, will.payload, byte(will.qos), will.retained)
	}
	if c.cfg.store != nil {
		opts.SetStore(c.cfg.store)
	}

	logger := c.logger.With("client_id", clientID, "protocol", "v3")

	if c.cfg.availabilityTopic != "" {
		topic := c.cfg.availabilityTopic
		payload := c.cfg.payloadOnline
		opts.SetOnConnectHandler(func(client mqtt.Client) {
			token := client.Publish(topic, byte(types.QoSAtLeastOnce), true, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				logger.Warn("failed to publish availability", "topic", topic, "error", err)
			}
		})
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection lost", "error", err)
	})

	c.tel.RecordBuild(ctx, types.ProtocolV3.String())
	logger.Debug("built 3.1.1 client", "host", c.host, "port", c.cfg.port)

	return &ConnectionV3{
		client:            mqtt.NewClient(opts),
		clientID:          clientID,
		availabilityTopic: c.cfg.availabilityTopic,
		payloadOffline:    c.cfg.payloadOffline,
		logger:            logger,
	}, nil
}

// ConnectV3 builds a 3.1.1 connection and connects it.
func (c *Connector) ConnectV3(ctx context.Context) (*ConnectionV3, error) {
	conn, err := c.BuildV3(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// ClientID returns the identifier this connection presents to the broker.
func (cn *ConnectionV3) ClientID() string {
	return cn.clientID
}

// Connect opens the connection and waits for the broker handshake. The
// context bounds the wait; the underlying client keeps its own connect
// timeout as a backstop.
func (cn *ConnectionV3) Connect(ctx context.Context) error {
	const op = "ConnectionV3.Connect"

	if err := cn.wait(ctx, cn.client.Connect()); err != nil {
		return NewNetworkError(op, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}
	cn.logger.Info("connected")
	return nil
}

// IsConnected reports whether the connection is currently up.
func (cn *ConnectionV3) IsConnected() bool {
	return cn.client.IsConnected()
}

// Publish sends a message and waits for the QoS handshake to complete.
func (cn *ConnectionV3) Publish(ctx context.Context, topic string, payload []byte, qos types.QoS, retained bool) error {
	const op = "ConnectionV3.Publish"

	if err := qos.Validate(); err != nil {
		return NewValidationError(op, err)
	}
	if !cn.client.IsConnected() {
		return NewNetworkError(op, fmt.Errorf("%w: publish to %s", ErrNotConnected, topic))
	}

	token := cn.client.Publish(topic, byte(qos), retained, payload)
	if err := cn.wait(ctx, token); err != nil {
		return NewNetworkError(op, err).WithContext(map[string]any{"topic": topic})
	}
	return nil
}

// Subscribe registers a handler for a topic filter. The filter may use
// the + and # wildcards.
func (cn *ConnectionV3) Subscribe(ctx context.Context, filter string, qos types.QoS, handler Handler) error {
	const op = "ConnectionV3.Subscribe"

	if err := qos.Validate(); err != nil {
		return NewValidationError(op, err)
	}
	if handler == nil {
		return NewValidationError(op, fmt.Errorf("%w: handler must not be nil", ErrInvalidConfig))
	}
	if !cn.client.IsConnected() {
		return NewNetworkError(op, fmt.Errorf("%w: subscribe to %s", ErrNotConnected, filter))
	}

	token := cn.client.Subscribe(filter, byte(qos), func(_ mqtt.Client, m mqtt.Message) {
		handler(Message{
			Topic:    m.Topic(),
			Payload:  m.Payload(),
			QoS:      types.QoS(m.Qos()),
			Retained: m.Retained(),
		})
	})
	if err := cn.wait(ctx, token); err != nil {
		return NewNetworkError(op, err).WithContext(map[string]any{"filter": filter})
	}
	return nil
}

// Unsubscribe removes subscriptions for the given topic filters.
func (cn *ConnectionV3) Unsubscribe(ctx context.Context, filters ...string) error {
	const op = "ConnectionV3.Unsubscribe"

	if !cn.client.IsConnected() {
		return NewNetworkError(op, ErrNotConnected)
	}
	if err := cn.wait(ctx, cn.client.Unsubscribe(filters...)); err != nil {
		return NewNetworkError(op, err)
	}
	return nil
}

// Close publishes the availability offline payload, waits for it, and
// disconnects. A failed offline publish is logged and does not abort the
// disconnect; the broker's last will covers unclean exits.
func (cn *ConnectionV3) Close(ctx context.Context) error {
	if cn.availabilityTopic != "" && cn.client.IsConnected() {
		token := cn.client.Publish(cn.availabilityTopic, byte(types.QoSAtLeastOnce), true, cn.payloadOffline)
		if err := cn.wait(ctx, token); err != nil {
			cn.logger.Warn("failed to publish availability before disconnect", "topic", cn.availabilityTopic, "error", err)
		}
	}

	cn.client.Disconnect(uint(disconnectQuiesce.Milliseconds()))
	cn.logger.Info("disconnected")
	return nil
}

// wait blocks until the token completes or the context ends.
func (cn *ConnectionV3) wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
