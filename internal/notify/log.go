package notify

import (
	"context"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
)

// Logger defines the logging interface used by the observers.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AttachLogObserver subscribes structured-log handlers for every device
// lifecycle event. The expired handler is the reference last-will delivery:
// it surfaces the payload alongside the scheduled and actual fire times.
func AttachLogObserver(b *bus.Bus, logger Logger) {
	b.SubscribeEvent(device.DeviceRegistered{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceRegistered)
			if !ok {
				return nil, nil
			}
			logger.Info("device registered",
				"uuid", e.UUID,
				"name", e.Name,
				"ttl", e.TTL,
				"fire_at", e.FireAt,
			)
			return nil, nil
		})

	b.SubscribeEvent(device.DeviceKeptAlive{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceKeptAlive)
			if !ok {
				return nil, nil
			}
			logger.Info("device kept alive", "uuid", e.UUID, "fire_at", e.FireAt)
			return nil, nil
		})

	b.SubscribeEvent(device.DeviceRemoved{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceRemoved)
			if !ok {
				return nil, nil
			}
			logger.Info("device removed", "uuid", e.UUID)
			return nil, nil
		})

	b.SubscribeEvent(device.DeviceExpired{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			e, ok := evt.(device.DeviceExpired)
			if !ok {
				return nil, nil
			}
			logger.Warn("last will triggered",
				"uuid", e.UUID,
				"fire_at", e.FireAt,
				"fired_at", e.FiredAt,
				"consumer_id", e.ConsumerID,
				"last_will", e.LastWill,
			)
			return nil, nil
		})
}
