package device

import "context"

// Store defines the persistence contract for devices.
//
// Implementations maintain two logical indexes: by identity (UUID) and by
// expiry second (fire_at). The fire-at index exists for one caller, the
// expiry poller, and is consumed through ClaimExpired, a destructive read.
// There is deliberately no non-destructive fire-at range query; claim
// semantics are easy to misuse and are kept behind one explicit name.
//
// All methods must be atomic with respect to each other. The unit of work
// additionally serialises whole transaction scopes, so implementations only
// need per-operation consistency, not multi-operation isolation.
type Store interface {
	// Get retrieves a device by UUID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Get(ctx context.Context, uuid string) (*Device, error)

	// GetAll returns every device keyed by UUID.
	GetAll(ctx context.Context) (map[string]*Device, error)

	// Add inserts a new device, indexing it by UUID and by fire_at.
	// Returns ErrDeviceExists if the UUID is already present.
	Add(ctx context.Context, d *Device) error

	// Update applies a partial update. When FireAt changes, the fire-at
	// index entry moves atomically so range claims stay correct.
	// A missing UUID is a no-op.
	Update(ctx context.Context, uuid string, upd Update) error

	// Remove deletes a device from both indexes. A missing UUID is a no-op.
	Remove(ctx context.Context, uuid string) error

	// RemoveAll clears both indexes.
	RemoveAll(ctx context.Context) error

	// ClaimExpired returns every device scheduled to fire in [start, end],
	// both bounds inclusive, and unschedules them in the same atomic step.
	// Repeating a claim for the same window returns nothing: each device is
	// returned at most once across all claims unless a later keep-alive
	// reschedules it.
	ClaimExpired(ctx context.Context, start, end int64) ([]*Device, error)

	// Snapshot captures the full store state (devices and fire schedule)
	// for transactional rollback.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Restore replaces the store contents with a previously taken snapshot.
	Restore(ctx context.Context, snap *Snapshot) error
}

// Update describes a partial device update. Nil fields are left unchanged.
type Update struct {
	Name          *string
	LastWill      *string
	TTL           *int64
	FireAt        *int64
	Consumed      *bool
	ConsumerID    *string
	VersionNumber *int64
}

// Snapshot is a point-in-time copy of a store, used by the unit of work to
// implement all-or-nothing rollback. Schedule maps UUID to the fire second
// it occupies in the time index; devices absent from Schedule have been
// claimed (or were restored as claimed) and will not fire again.
type Snapshot struct {
	Devices  map[string]*Device
	Schedule map[string]int64
}
