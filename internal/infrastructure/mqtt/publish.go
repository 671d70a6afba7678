package mqtt

import (
	"fmt"
)

// Maximum payload size for published messages (1MB).
// Aligns with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the given topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g. "khanda/events/LED")
//   - payload: The message payload, max 1MB
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Retained messages suit state topics (registrations, system status);
// events should not be retained.
//
// Returns:
//   - error: nil on success, or a wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishEvent publishes a dispatched event on its type topic with the
// configured default QoS, not retained.
func (c *Client) PublishEvent(eventType string, payload []byte) error {
	return c.Publish(Topics{}.Event(eventType), payload, byte(c.cfg.QoS), false)
}

// PublishRegistration publishes a device registration on its address
// topic, retained, so late subscribers see the current roster.
func (c *Client) PublishRegistration(address string, payload []byte) error {
	return c.Publish(Topics{}.Registry(address), payload, byte(c.cfg.QoS), true)
}
