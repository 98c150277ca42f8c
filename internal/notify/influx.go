package notify

import (
	"context"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
)

// MetricsWriter is the interface the telemetry observer needs from the
// InfluxDB client. Writes are non-blocking and batched by the client.
type MetricsWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any)
}

// AttachTelemetryObserver subscribes handlers that record device lifecycle
// points to the time-series database. One measurement, tagged by event
// kind, so expiry rates and registration churn chart directly.
func AttachTelemetryObserver(b *bus.Bus, w MetricsWriter) {
	write := func(evt bus.Event, uuid string, fields map[string]any) {
		w.WritePoint("device_lifecycle",
			map[string]string{"event": evt.EventName(), "uuid": uuid},
			fields,
		)
	}

	b.SubscribeEvent(device.DeviceRegistered{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			if e, ok := evt.(device.DeviceRegistered); ok {
				write(evt, e.UUID, map[string]any{"ttl": e.TTL, "fire_at": e.FireAt})
			}
			return nil, nil
		})

	b.SubscribeEvent(device.DeviceKeptAlive{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			if e, ok := evt.(device.DeviceKeptAlive); ok {
				write(evt, e.UUID, map[string]any{"fire_at": e.FireAt})
			}
			return nil, nil
		})

	b.SubscribeEvent(device.DeviceRemoved{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			if e, ok := evt.(device.DeviceRemoved); ok {
				write(evt, e.UUID, map[string]any{"removed": true})
			}
			return nil, nil
		})

	b.SubscribeEvent(device.DeviceExpired{}.EventName(),
		func(_ context.Context, evt bus.Event) ([]bus.Message, error) {
			if e, ok := evt.(device.DeviceExpired); ok {
				// lag is how far past the scheduled second the fire landed,
				// bounded above by the poll interval in normal operation.
				write(evt, e.UUID, map[string]any{
					"fire_at":  e.FireAt,
					"fired_at": e.FiredAt,
					"lag":      e.FiredAt - e.FireAt,
				})
			}
			return nil, nil
		})
}
