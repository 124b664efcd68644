package mqtt

import (
	"fmt"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize bounds a single message (1MB).
const maxPayloadSize = 1 << 20

// Publish sends payload to topic. Retained messages are used for presence
// and discovery announcements; an empty retained payload clears the topic.
// Topics must be concrete: wildcards are rejected.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.conn.Publish(topic, qos, retained, payload), defaultPublishTimeout, ErrPublishFailed)
}

// Subscribe registers handler for filter, which may use + and # wildcards.
// The subscription is replayed after a reconnect. Subscribing again to the
// same filter replaces the handler.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.subs[filter] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := await(c.conn.Subscribe(filter, qos, c.dispatch(handler)), defaultPublishTimeout, ErrSubscribeFailed); err != nil {
		c.forget(filter)
		return err
	}
	return nil
}

// Unsubscribe drops the subscription for filter. Messages already in flight
// may still be delivered.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.forget(filter)
	return await(c.conn.Unsubscribe(filter), defaultPublishTimeout, ErrUnsubscribeFailed)
}

// SubscriptionCount returns the number of remembered subscriptions.
func (c *Client) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Client) forget(filter string) {
	c.mu.Lock()
	delete(c.subs, filter)
	c.mu.Unlock()
}

// dispatch adapts handler to paho, logging returned errors and recovering
// panics so one bad message cannot kill the client.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if l := c.log(); l != nil {
					l.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if l := c.log(); l != nil {
				l.Warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
