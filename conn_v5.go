package sdk

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/steadymq/sdk/types"
)

// persistentSessionExpiry asks the broker to keep session state for an
// hour across disconnects when the session is persistent.
const persistentSessionExpiry uint32 = 3600

// availabilityTimeout bounds the availability publish that runs inside
// connection callbacks.
const availabilityTimeout = 5 * time.Second

// ConnectionV5 is an MQTT 5.0 connection. Build one with
// Connector.BuildV5, or use Connector.ConnectV5 to build and connect in
// one step.
//
// Once connected, the underlying manager keeps the connection up,
// reconnecting with its own backoff and restoring session state per the
// session expiry interval.
type ConnectionV5 struct {
	cfg      autopaho.ClientConfig
	clientID string

	availabilityTopic string
	payloadOnline     string
	payloadOffline    string

	logger *slog.Logger

	mu       sync.Mutex
	cm       *autopaho.ConnectionManager
	handlers map[string]Handler
}

var _ Connection = (*ConnectionV5)(nil)

// BuildV5 derives the client ID and assembles a 5.0 connection without
// connecting it. Persistent sessions map to clean-start false plus a
// non-zero session expiry interval.
func (c *Connector) BuildV5(ctx context.Context) (*ConnectionV5, error) {
	const op = "Connector.BuildV5"

	clientID, err := c.ClientID(ctx)
	if err != nil {
		return nil, err
	}

	tlsCfg, err := c.brokerTLS(op)
	if err != nil {
		return nil, err
	}

	scheme := "mqtt"
	if tlsCfg != nil {
		scheme = "tls"
	}
	brokerURL, err := url.Parse(fmt.Sprintf("%s://%s:%d", scheme, c.host, c.cfg.port))
	if err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("failed to parse broker URL: %w", err))
	}

	logger := c.logger.With("client_id", clientID, "protocol", "v5")

	conn := &ConnectionV5{
		clientID:          clientID,
		availabilityTopic: c.cfg.availabilityTopic,
		payloadOnline:     c.cfg.payloadOnline,
		payloadOffline:    c.cfg.payloadOffline,
		logger:            logger,
		handlers:          make(map[string]Handler),
	}

	var sessionExpiry uint32
	if c.cfg.persistent {
		sessionExpiry = persistentSessionExpiry
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     uint16(c.cfg.keepAlive.Seconds()),
		CleanStartOnInitialConnection: !c.cfg.persistent,
		SessionExpiryInterval:         sessionExpiry,
		TlsCfg:                        tlsCfg,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			logger.Info("connected")
			conn.publishOnline(cm)
		},
		OnConnectError: func(err error) {
			logger.Warn("connection attempt failed", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				conn.dispatch,
			},
			OnClientError: func(err error) {
				logger.Warn("client error", "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				logger.Warn("server disconnected", "reason_code", d.ReasonCode)
			},
		},
	}

	if c.cfg.username != "" {
		cfg.ConnectUsername = c.cfg.username
		cfg.ConnectPassword = []byte(c.cfg.password)
	}
	if will := c.effectiveWill(); will != nil {
		cfg.WillMessage = &paho.WillMessage{
			Retain:  will.retained,
			QoS:     byte(will.qos),
			Topic:   will.topic,
			Payload: []byte(will.payload),
		}
	}

	conn.cfg = cfg

	c.tel.RecordBuild(ctx, types.ProtocolV5.String())
	logger.Debug("built 5.0 client", "host", c.host, "port", c.cfg.port)

	return conn, nil
}

// ConnectV5 builds a 5.0 connection and connects it.
func (c *Connector) ConnectV5(ctx context.Context) (*ConnectionV5, error) {
	conn, err := c.BuildV5(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// ClientID returns the identifier this connection presents to the broker.
func (cn *ConnectionV5) ClientID() string {
	return cn.clientID
}

// Connect starts the connection manager and waits for the first broker
// handshake. Connecting an already-connected connection is a no-op.
func (cn *ConnectionV5) Connect(ctx context.Context) error {
	const op = "ConnectionV5.Connect"

	cn.mu.Lock()
	if cn.cm != nil {
		cn.mu.Unlock()
		return nil
	}
	cm, err := autopaho.NewConnection(ctx, cn.cfg)
	if err != nil {
		cn.mu.Unlock()
		return NewNetworkError(op, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}
	cn.cm = cm
	cn.mu.Unlock()

	if err := cm.AwaitConnection(ctx); err != nil {
		return NewNetworkError(op, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}
	return nil
}

// Publish sends a message and waits for the broker's acknowledgement at
// the requested QoS.
func (cn *ConnectionV5) Publish(ctx context.Context, topic string, payload []byte, qos types.QoS, retained bool) error {
	const op = "ConnectionV5.Publish"

	if err := qos.Validate(); err != nil {
		return NewValidationError(op, err)
	}
	cm, err := cn.manager(op)
	if err != nil {
		return err
	}

	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retained,
		Payload: payload,
	}); err != nil {
		return NewNetworkError(op, err).WithContext(map[string]any{"topic": topic})
	}
	return nil
}

// Subscribe registers a handler for a topic filter and subscribes with
// the broker. The filter may use the + and # wildcards; received messages
// go to every handler whose filter matches.
func (cn *ConnectionV5) Subscribe(ctx context.Context, filter string, qos types.QoS, handler Handler) error {
	const op = "ConnectionV5.Subscribe"

	if err := qos.Validate(); err != nil {
		return NewValidationError(op, err)
	}
	if handler == nil {
		return NewValidationError(op, fmt.Errorf("%w: handler must not be nil", ErrInvalidConfig))
	}
	cm, err := cn.manager(op)
	if err != nil {
		return err
	}

	cn.mu.Lock()
	cn.handlers[filter] = handler
	cn.mu.Unlock()

	if _, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: byte(qos)}},
	}); err != nil {
		cn.mu.Lock()
		delete(cn.handlers, filter)
		cn.mu.Unlock()
		return NewNetworkError(op, err).WithContext(map[string]any{"filter": filter})
	}
	return nil
}

// Unsubscribe removes subscriptions and their handlers for the given
// topic filters.
func (cn *ConnectionV5) Unsubscribe(ctx context.Context, filters ...string) error {
	const op = "ConnectionV5.Unsubscribe"

	cm, err := cn.manager(op)
	if err != nil {
		return err
	}

	cn.mu.Lock()
	for _, filter := range filters {
		delete(cn.handlers, filter)
	}
	cn.mu.Unlock()

	if _, err := cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: filters}); err != nil {
		return NewNetworkError(op, err)
	}
	return nil
}

// Close publishes the availability offline payload and shuts the
// connection manager down. Closing a never-connected connection is a
// no-op.
func (cn *ConnectionV5) Close(ctx context.Context) error {
	cn.mu.Lock()
	cm := cn.cm
	cn.cm = nil
	cn.mu.Unlock()
	if cm == nil {
		return nil
	}

	if cn.availabilityTopic != "" {
		if _, err := cm.Publish(ctx, &paho.Publish{
			Topic:   cn.availabilityTopic,
			QoS:     byte(types.QoSAtLeastOnce),
			Retain:  true,
			Payload: []byte(cn.payloadOffline),
		}); err != nil {
			cn.logger.Warn("failed to publish availability before disconnect", "topic", cn.availabilityTopic, "error", err)
		}
	}

	if err := cm.Disconnect(ctx); err != nil {
		return NewNetworkError("ConnectionV5.Close", err)
	}
	cn.logger.Info("disconnected")
	return nil
}

// publishOnline announces availability from inside the connection-up
// callback. Failures are logged; the will message covers the offline
// side.
func (cn *ConnectionV5) publishOnline(cm *autopaho.ConnectionManager) {
	if cn.availabilityTopic == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()

	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   cn.availabilityTopic,
		QoS:     byte(types.QoSAtLeastOnce),
		Retain:  true,
		Payload: []byte(cn.payloadOnline),
	}); err != nil {
		cn.logger.Warn("failed to publish availability", "topic", cn.availabilityTopic, "error", err)
	}
}

// dispatch routes a received publish to every handler whose filter
// matches its topic. Handlers run on the dispatch goroutine.
func (cn *ConnectionV5) dispatch(pr paho.PublishReceived) (bool, error) {
	msg := Message{
		Topic:    pr.Packet.Topic,
		Payload:  pr.Packet.Payload,
		QoS:      types.QoS(pr.Packet.QoS),
		Retained: pr.Packet.Retain,
	}

	cn.mu.Lock()
	var matched []Handler
	for filter, handler := range cn.handlers {
		if matchTopic(filter, msg.Topic) {
			matched = append(matched, handler)
		}
	}
	cn.mu.Unlock()

	for _, handler := range matched {
		handler(msg)
	}
	return len(matched) > 0, nil
}

// manager returns the running connection manager, or a not-connected
// error when Connect has not been called.
func (cn *ConnectionV5) manager(op string) (*autopaho.ConnectionManager, error) {
	cn.mu.Lock()
	cm := cn.cm
	cn.mu.Unlock()

	if cm == nil {
		return nil, NewNetworkError(op, ErrNotConnected)
	}
	return cm, nil
}
