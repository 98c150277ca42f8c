package device

// Commands are imperative requests with exactly one handler each; their
// failures propagate to whoever dispatched them. Events are facts about
// state changes that already happened; they fan out to zero or more
// observers whose failures are isolated.
//
// The CommandName/EventName methods classify messages for the bus and key
// the handler tables. Names are stable wire-ish identifiers, not Go type
// names, so observers (MQTT topics, telemetry tags) can rely on them.

// Command messages.

// RegisterDevice creates a new device with a fresh TTL window.
type RegisterDevice struct {
	UUID     string
	Name     string
	LastWill string
	TTL      int64
}

// CommandName identifies the command for dispatch.
func (RegisterDevice) CommandName() string { return "register_device" }

// RemoveDevice deletes a device before it fires.
type RemoveDevice struct {
	UUID string
}

// CommandName identifies the command for dispatch.
func (RemoveDevice) CommandName() string { return "remove_device" }

// KeepAliveDevice renews a device's expiry to now + TTL.
type KeepAliveDevice struct {
	UUID string
}

// CommandName identifies the command for dispatch.
func (KeepAliveDevice) CommandName() string { return "keep_alive_device" }

// ConsumeDevice fires an expired device's last will. Dispatched by the
// expiry poller for each device it claims; ConsumerID identifies the
// claiming process.
type ConsumeDevice struct {
	UUID       string
	ConsumerID string
}

// CommandName identifies the command for dispatch.
func (ConsumeDevice) CommandName() string { return "consume_device" }

// Event messages.

// DeviceRegistered is recorded when a device is created.
type DeviceRegistered struct {
	UUID     string
	Name     string
	LastWill string
	TTL      int64
	FireAt   int64
}

// EventName identifies the event for dispatch.
func (DeviceRegistered) EventName() string { return "device_registered" }

// DeviceRemoved is recorded when a device is deleted.
type DeviceRemoved struct {
	UUID string
}

// EventName identifies the event for dispatch.
func (DeviceRemoved) EventName() string { return "device_removed" }

// DeviceKeptAlive is recorded when a keep-alive renews a device.
type DeviceKeptAlive struct {
	UUID   string
	FireAt int64
}

// EventName identifies the event for dispatch.
func (DeviceKeptAlive) EventName() string { return "device_kept_alive" }

// DeviceExpired is recorded on first consumption. FireAt is the scheduled
// expiry, FiredAt the instant the consumer actually fired it.
type DeviceExpired struct {
	UUID       string
	FireAt     int64
	FiredAt    int64
	LastWill   string
	ConsumerID string
}

// EventName identifies the event for dispatch.
func (DeviceExpired) EventName() string { return "device_expired" }

// Event is implemented by all device domain events.
type Event interface {
	EventName() string
}
