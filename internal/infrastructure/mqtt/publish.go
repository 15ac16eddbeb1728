package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, well under common broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic.
//
// Deck commands go out at QoS 1 without retain so a reconnecting console
// never replays a stale command. State topics such as training status are
// retained so a console that subscribes late sees the current value.
//
// Returns ErrNotConnected while the link is down and ErrPublishFailed when
// the broker does not acknowledge within the publish timeout.
//
// Example:
//
//	err := client.Publish(mqtt.Topics{}.Command("A"), []byte(`{"command":"play"}`), 1, false)
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

	if err := wait(c.client.Publish(topic, qos, retained, payload)); err != nil {
		c.publishFailed.Add(1)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	c.published.Add(1)
	return nil
}

// PublishRetained publishes a retained message at the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
