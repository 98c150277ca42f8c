package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
	"github.com/nerrad567/vigil-core/internal/infrastructure/mqtt"
)

// Publisher is the interface the MQTT observer needs from the MQTT client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// eventQoS is the QoS for lifecycle event publishes. At-least-once matches
// the best-effort delivery stance: duplicates are tolerable, silent loss on
// a flaky link is not.
const eventQoS byte = 1

// AttachMQTTObserver subscribes handlers that mirror device lifecycle
// events onto the MQTT broker. Lifecycle events go to
// vigil/event/{event_name}; an expiry additionally publishes the raw last
// will to vigil/lastwill/{uuid} for downstream delivery consumers.
func AttachMQTTObserver(b *bus.Bus, pub Publisher) {
	topics := mqtt.Topics{}

	publishEvent := func(evt bus.Event, body any) error {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling %s event: %w", evt.EventName(), err)
		}
		if err := pub.Publish(topics.Event(evt.EventName()), payload, eventQoS, false); err != nil {
			return fmt.Errorf("publishing %s event: %w", evt.EventName(), err)
		}
		return nil
	}

	b.SubscribeEvent(device.DeviceRegistered{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceRegistered)
			if !ok {
				return nil, nil
			}
			return nil, publishEvent(evt, map[string]any{
				"uuid":    e.UUID,
				"name":    e.Name,
				"ttl":     e.TTL,
				"fire_at": e.FireAt,
			})
		})

	b.SubscribeEvent(device.DeviceKeptAlive{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceKeptAlive)
			if !ok {
				return nil, nil
			}
			return nil, publishEvent(evt, map[string]any{
				"uuid":    e.UUID,
				"fire_at": e.FireAt,
			})
		})

	b.SubscribeEvent(device.DeviceRemoved{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceRemoved)
			if !ok {
				return nil, nil
			}
			return nil, publishEvent(evt, map[string]any{"uuid": e.UUID})
		})

	b.SubscribeEvent(device.DeviceExpired{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceExpired)
			if !ok {
				return nil, nil
			}
			if err := publishEvent(evt, map[string]any{
				"uuid":        e.UUID,
				"fire_at":     e.FireAt,
				"fired_at":    e.FiredAt,
				"consumer_id": e.ConsumerID,
			}); err != nil {
				return nil, err
			}
			// The last will itself is opaque; publish it verbatim.
			if err := pub.Publish(topics.LastWill(e.UUID), []byte(e.LastWill), eventQoS, false); err != nil {
				return nil, fmt.Errorf("publishing last will for %s: %w", e.UUID, err)
			}
			return nil, nil
		})
}
