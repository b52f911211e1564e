package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound payloads at 1MB, the common broker default.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic. Point state and metadata go out retained
// so late subscribers see the current tree; set and response traffic does
// not.
//
//	err := client.Publish(client.Topics().State("meta.audio.volume"),
//	    []byte(`{"val":40,"ack":true}`), 1, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if n := len(payload); n > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, n, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return await(c.client.Publish(topic, qos, retained, payload), defaultPublishTimeout, ErrPublishFailed)
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
