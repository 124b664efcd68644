package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
)

// Client is one simulator's connection to the shared broker.
//
// The client keeps a retained presence document on Topics.Status(clientID):
// online after every (re)connect, offline on Close, and offline with reason
// unexpected_disconnect through the broker will when the process dies.
// Subscriptions are remembered and replayed after a reconnect.
//
// All methods are safe for concurrent use.
type Client struct {
	conn   pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	mu           sync.RWMutex
	connected    bool
	subs         map[string]subscription
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the optional logger of the client. *logging.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler receives the topic and payload of one message. Handlers
// run on their own goroutine, so they may publish and wait. A returned
// error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Connect dials the broker and waits for the first connection.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: NewTopics(cfg.TopicPrefix),
		subs:   make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	setWill(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connectionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.connectionDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if l := c.log(); l != nil {
			l.Warn("MQTT reconnecting", "client_id", cfg.Broker.ClientID)
		}
	})

	c.conn = pahomqtt.NewClient(opts)
	if err := await(c.conn.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The connect handler runs asynchronously; mark the client usable now.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return c, nil
}

// connectionUp replays subscriptions, republishes presence and runs the
// connect hook.
func (c *Client) connectionUp() {
	c.mu.Lock()
	c.connected = true
	replay := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		replay[topic] = sub
	}
	hook := c.onConnect
	c.mu.Unlock()

	for topic, sub := range replay {
		c.conn.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
	}
	c.publishStatus(StatusOnline, "", false)

	if l := c.log(); l != nil {
		l.Info("MQTT connected", "client_id", c.cfg.Broker.ClientID, "subscriptions", len(replay))
	}
	if hook != nil {
		hook()
	}
}

func (c *Client) connectionDown(err error) {
	c.mu.Lock()
	c.connected = false
	hook := c.onDisconnect
	c.mu.Unlock()

	if hook != nil {
		hook(err)
	}
}

// publishStatus writes the retained presence document. With wait set it
// blocks until the broker acknowledges or the publish timeout passes.
func (c *Client) publishStatus(status, reason string, wait bool) {
	id := c.cfg.Broker.ClientID
	token := c.conn.Publish(c.topics.Status(id), byte(c.cfg.QoS), true, newStatus(id, status, reason))
	if wait {
		token.WaitTimeout(defaultPublishTimeout)
	}
}

// Close publishes an offline status and disconnects. Closing a client that
// never connected is a no-op.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(StatusOffline, ReasonShutdown, true)
	}
	c.conn.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the client is currently connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.conn != nil && c.conn.IsConnected()
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics { return c.topics }

// ClientID returns the MQTT client identifier.
func (c *Client) ClientID() string { return c.cfg.Broker.ClientID }

// QoS returns the configured default QoS level.
func (c *Client) QoS() byte { return byte(c.cfg.QoS) }

// SetOnConnect sets a hook run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect sets a hook run when the connection is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets the logger for handler failures and connection events.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// await waits for a paho token and maps failure onto sentinel.
func await(token pahomqtt.Token, timeout time.Duration, sentinel error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", sentinel, ErrTimeout, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
