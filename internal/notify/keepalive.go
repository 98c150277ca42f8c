package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
	"github.com/nerrad567/vigil-core/internal/infrastructure/mqtt"
)

// Subscriber is the interface the keep-alive listener needs from the MQTT
// client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Dispatcher dispatches messages onto the bus.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg bus.Message) error
}

// keepAliveQoS is the subscription QoS for inbound keep-alives. A duplicate
// keep-alive is a no-op beyond pushing the deadline again, so at-least-once
// is safe.
const keepAliveQoS byte = 1

// AttachKeepAliveListener subscribes to vigil/keepalive/+ and dispatches a
// keep-alive command for each message received. The device UUID is carried
// in the topic; the payload is ignored.
//
// This gives device agents a fire-and-forget alternative to the HTTP
// keep-alive endpoint. Unknown or malformed UUIDs are reported back to the
// MQTT client, which logs and drops them.
func AttachKeepAliveListener(sub Subscriber, d Dispatcher) error {
	topic := mqtt.Topics{}.AllKeepAlives()
	return sub.Subscribe(topic, keepAliveQoS, func(topic string, _ []byte) error {
		uuid := topic[strings.LastIndex(topic, "/")+1:]
		if err := device.ValidateUUID(uuid); err != nil {
			return fmt.Errorf("keep-alive on %s: %w", topic, err)
		}
		if err := d.Dispatch(context.Background(), device.KeepAliveDevice{UUID: uuid}); err != nil {
			return fmt.Errorf("keep-alive for %s: %w", uuid, err)
		}
		return nil
	})
}
