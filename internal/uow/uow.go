package uow

import (
	"context"
	"sync"

	"github.com/nerrad567/vigil-core/internal/device"
)

// Logger defines the logging interface used by the Factory.
type Logger interface {
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Factory opens unit-of-work scopes over one shared device store.
//
// The transaction mutex serialises whole scopes: request handlers and the
// expiry poller all mutate the same store, and snapshot-based rollback is
// only sound when no other scope interleaves its writes.
type Factory struct {
	store  device.Store
	txMu   sync.Mutex
	logger Logger
}

// NewFactory creates a factory bound to the given store.
func NewFactory(store device.Store, logger Logger) *Factory {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Factory{store: store, logger: logger}
}

// Begin opens a scope: acquires the transaction lock and snapshots the
// store. The caller must End the returned UnitOfWork, normally via defer.
//
// Returns ErrNotInitialised if the factory has no store bound.
func (f *Factory) Begin(ctx context.Context) (*UnitOfWork, error) {
	if f == nil || f.store == nil {
		return nil, ErrNotInitialised
	}

	f.txMu.Lock()
	snap, err := f.store.Snapshot(ctx)
	if err != nil {
		f.txMu.Unlock()
		return nil, err
	}

	return &UnitOfWork{
		factory:  f,
		ctx:      ctx,
		snapshot: snap,
		tracked:  &TrackedStore{inner: f.store, seenIDs: make(map[string]struct{})},
	}, nil
}

// UnitOfWork is one open transaction scope. It is not safe for concurrent
// use; a scope belongs to the single goroutine that began it.
type UnitOfWork struct {
	factory   *Factory
	ctx       context.Context
	snapshot  *device.Snapshot
	tracked   *TrackedStore
	committed bool
	ended     bool
}

// Devices returns the seen-tracking view of the store for this scope.
func (u *UnitOfWork) Devices() *TrackedStore {
	return u.tracked
}

// Commit finalises the scope. For the in-memory store this only suppresses
// the rollback in End; the contract exists so a durable backend can flush.
func (u *UnitOfWork) Commit() error {
	u.committed = true
	return nil
}

// Rollback restores the store to the snapshot taken at Begin, discarding
// every add, update, and remove performed during the scope. Rollback is
// all-or-nothing over the whole store, not per-aggregate.
func (u *UnitOfWork) Rollback() error {
	u.committed = false
	return u.factory.store.Restore(u.ctx, u.snapshot)
}

// End closes the scope and releases the transaction lock. If Commit was not
// called, the store is rolled back first. End is idempotent and is meant to
// be deferred immediately after Begin.
func (u *UnitOfWork) End() {
	if u.ended {
		return
	}
	u.ended = true
	if !u.committed {
		if err := u.factory.store.Restore(u.ctx, u.snapshot); err != nil {
			u.factory.logger.Error("unit of work rollback failed", "error", err)
		}
	}
	u.factory.txMu.Unlock()
}

// CollectNewEvents drains the pending event queues of every device touched
// during this scope, in the order they were first touched. Each call
// returns only events queued since the previous call.
func (u *UnitOfWork) CollectNewEvents() []device.Event {
	var evts []device.Event
	for _, d := range u.tracked.seen {
		evts = append(evts, d.DrainEvents()...)
	}
	return evts
}

// TrackedStore wraps the shared store and records which aggregate instances
// the scope has touched, so their pending events can be harvested. The seen
// set is local to one scope; it is the mechanism that decouples event
// collection from the store's CRUD surface.
type TrackedStore struct {
	inner   device.Store
	seen    []*device.Device
	seenIDs map[string]struct{}
}

// Get retrieves a device and marks it seen.
func (t *TrackedStore) Get(ctx context.Context, uuid string) (*device.Device, error) {
	d, err := t.inner.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	t.mark(d)
	return d, nil
}

// GetAll returns every device, marking all of them seen.
func (t *TrackedStore) GetAll(ctx context.Context) (map[string]*device.Device, error) {
	all, err := t.inner.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range all {
		t.mark(d)
	}
	return all, nil
}

// Add inserts a device and marks it seen.
func (t *TrackedStore) Add(ctx context.Context, d *device.Device) error {
	if err := t.inner.Add(ctx, d); err != nil {
		return err
	}
	t.mark(d)
	return nil
}

// Update applies a partial update. The instance carrying any new events was
// already marked seen when the scope fetched or added it.
func (t *TrackedStore) Update(ctx context.Context, uuid string, upd device.Update) error {
	return t.inner.Update(ctx, uuid, upd)
}

// Remove deletes a device. Handlers fetch before removing, so the removed
// aggregate is already in the seen set and its removal event is harvested.
func (t *TrackedStore) Remove(ctx context.Context, uuid string) error {
	return t.inner.Remove(ctx, uuid)
}

// RemoveAll clears the store.
func (t *TrackedStore) RemoveAll(ctx context.Context) error {
	return t.inner.RemoveAll(ctx)
}

// ClaimExpired claims the devices firing in [start, end] and marks each one
// seen.
func (t *TrackedStore) ClaimExpired(ctx context.Context, start, end int64) ([]*device.Device, error) {
	claimed, err := t.inner.ClaimExpired(ctx, start, end)
	if err != nil {
		return nil, err
	}
	for _, d := range claimed {
		t.mark(d)
	}
	return claimed, nil
}

// mark records a device in the seen set, once, preserving touch order.
func (t *TrackedStore) mark(d *device.Device) {
	if _, ok := t.seenIDs[d.UUID]; ok {
		return
	}
	t.seenIDs[d.UUID] = struct{}{}
	t.seen = append(t.seen, d)
}
