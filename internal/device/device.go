package device

// Device is the aggregate representing one monitored entity.
//
// All timestamps are UNIX seconds in UTC. Identity is the UUID alone: two
// Device values with the same UUID refer to the same aggregate regardless of
// their other fields.
//
// State transitions append domain events to an internal pending queue. The
// queue is owned exclusively by the Device and drained in FIFO order by the
// unit of work when it harvests new events; it is never persisted.
type Device struct {
	// Identity, immutable after creation.
	UUID string `json:"uuid"`
	Name string `json:"name"`

	// LastWill is the opaque payload delivered when the device expires.
	LastWill string `json:"last_will"`

	// TTL is the number of seconds added to "now" on registration and on
	// every keep-alive to compute the next expiry.
	TTL int64 `json:"ttl"`

	CreatedAt int64 `json:"created_at"`

	// FireAt is the expiry timestamp. It is recomputed from the renewal
	// instant on each keep-alive, never extended from its previous value.
	FireAt int64 `json:"fire_at"`

	// ConsumerID identifies whichever consumer first fired the device.
	// Nil until consumption.
	ConsumerID *string `json:"consumer_id"`

	Consumed bool `json:"consumed"`

	// VersionNumber is bumped on every consumption attempt. It is an
	// optimistic-concurrency marker reserved for durable backends; nothing
	// performs conflict detection on it today.
	VersionNumber int64 `json:"version_number"`

	// events is the pending domain event queue, oldest first.
	events []Event
}

// New creates a Device registered at the given instant and records a
// DeviceRegistered event. fire_at is created_at + ttl.
func New(uuid, name, lastWill string, ttl, now int64) *Device {
	d := &Device{
		UUID:      uuid,
		Name:      name,
		LastWill:  lastWill,
		TTL:       ttl,
		CreatedAt: now,
		FireAt:    now + ttl,
	}
	d.record(DeviceRegistered{
		UUID:     d.UUID,
		Name:     d.Name,
		LastWill: d.LastWill,
		TTL:      d.TTL,
		FireAt:   d.FireAt,
	})
	return d
}

// Renew pushes the expiry forward to now + TTL and records a DeviceKeptAlive
// event. The new fire_at is measured from the renewal instant, so a late
// keep-alive still grants a full fresh TTL.
//
// The caller is responsible for persisting the new fire_at through the store
// so the time index is re-bucketed.
func (d *Device) Renew(now int64) {
	d.FireAt = now + d.TTL
	d.record(DeviceKeptAlive{UUID: d.UUID, FireAt: d.FireAt})
}

// MarkRemoved records a DeviceRemoved event. The caller removes the device
// from the store; the event survives on this instance for harvesting.
func (d *Device) MarkRemoved() {
	d.record(DeviceRemoved{UUID: d.UUID})
}

// Consume marks the device as fired by the given consumer at the given
// instant and records a DeviceExpired event carrying the last will.
//
// Consumption is idempotent-safe: a repeat call bumps the version number
// again but changes nothing else and records no event. It returns true on
// the first consumption and false on repeats so the caller can log a warning
// without the domain layer raising.
func (d *Device) Consume(consumerID string, now int64) bool {
	d.VersionNumber++
	if d.Consumed {
		return false
	}
	d.Consumed = true
	d.ConsumerID = &consumerID
	d.record(DeviceExpired{
		UUID:       d.UUID,
		FireAt:     d.FireAt,
		FiredAt:    now,
		LastWill:   d.LastWill,
		ConsumerID: consumerID,
	})
	return true
}

// DrainEvents removes and returns all pending events in FIFO order.
// A second call returns only events recorded since the first.
func (d *Device) DrainEvents() []Event {
	evts := d.events
	d.events = nil
	return evts
}

// HasPendingEvents reports whether any events are queued on this instance.
func (d *Device) HasPendingEvents() bool {
	return len(d.events) > 0
}

func (d *Device) record(e Event) {
	d.events = append(d.events, e)
}

// Clone returns an independent copy of the device without its pending event
// queue. Snapshots use clones so a rollback restores state as of scope entry
// with no stale events attached.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.events = nil
	if d.ConsumerID != nil {
		id := *d.ConsumerID
		cpy.ConsumerID = &id
	}
	return &cpy
}
