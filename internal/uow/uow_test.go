package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/vigil-core/internal/device"
)

func newFactory(t *testing.T) (*Factory, *device.MemoryStore) {
	t.Helper()
	store := device.NewMemoryStore()
	return NewFactory(store, nil), store
}

func TestFactory_Begin(t *testing.T) {
	t.Run("nil factory is not initialised", func(t *testing.T) {
		var f *Factory
		if _, err := f.Begin(context.Background()); !errors.Is(err, ErrNotInitialised) {
			t.Errorf("Begin() error = %v, want ErrNotInitialised", err)
		}
	})

	t.Run("factory without store is not initialised", func(t *testing.T) {
		f := &Factory{}
		if _, err := f.Begin(context.Background()); !errors.Is(err, ErrNotInitialised) {
			t.Errorf("Begin() error = %v, want ErrNotInitialised", err)
		}
	})
}

func TestUnitOfWork_CommitPersists(t *testing.T) {
	f, store := newFactory(t)
	ctx := context.Background()

	u, err := f.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	d := device.New("uuid-1", "pump", "payload", 300, 1000)
	if err := u.Devices().Add(ctx, d); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	u.End()

	if _, err := store.Get(ctx, "uuid-1"); err != nil {
		t.Errorf("device lost after commit: %v", err)
	}
}

func TestUnitOfWork_EndWithoutCommitRollsBack(t *testing.T) {
	f, store := newFactory(t)
	ctx := context.Background()

	// Seed one device through a committed scope.
	u, _ := f.Begin(ctx)
	seed := device.New("uuid-1", "pump", "payload", 300, 1000)
	if err := u.Devices().Add(ctx, seed); err != nil {
		t.Fatal(err)
	}
	u.Commit()
	u.End()

	// Mutate everything in a scope that never commits.
	u, _ = f.Begin(ctx)
	d, err := u.Devices().Get(ctx, "uuid-1")
	if err != nil {
		t.Fatal(err)
	}
	d.Renew(2000)
	newFireAt := d.FireAt
	if err := u.Devices().Update(ctx, d.UUID, device.Update{FireAt: &newFireAt}); err != nil {
		t.Fatal(err)
	}
	if err := u.Devices().Add(ctx, device.New("uuid-2", "other", "w", 60, 2000)); err != nil {
		t.Fatal(err)
	}
	u.End()

	// The renewal and the add are both gone.
	got, err := store.Get(ctx, "uuid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FireAt != 1300 {
		t.Errorf("FireAt = %d after rollback, want 1300", got.FireAt)
	}
	if _, err := store.Get(ctx, "uuid-2"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("uncommitted add survived rollback: %v", err)
	}

	// The fire schedule rolled back too.
	claimed, _ := store.ClaimExpired(ctx, 1300, 1300)
	if len(claimed) != 1 {
		t.Errorf("claim on original second returned %d devices, want 1", len(claimed))
	}
}

func TestUnitOfWork_ExplicitRollback(t *testing.T) {
	f, store := newFactory(t)
	ctx := context.Background()

	u, _ := f.Begin(ctx)
	if err := u.Devices().Add(ctx, device.New("uuid-1", "pump", "w", 60, 1000)); err != nil {
		t.Fatal(err)
	}
	if err := u.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	u.End()

	if _, err := store.Get(ctx, "uuid-1"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Error("explicit rollback did not discard the add")
	}
}

func TestUnitOfWork_EndIsIdempotent(t *testing.T) {
	f, _ := newFactory(t)

	u, _ := f.Begin(context.Background())
	u.Commit()
	u.End()
	u.End() // must not double-unlock

	// The lock was released exactly once; a fresh scope can begin.
	u2, err := f.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() after End error = %v", err)
	}
	u2.Commit()
	u2.End()
}

func TestCollectNewEvents(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	t.Run("collects in touch order", func(t *testing.T) {
		u, _ := f.Begin(ctx)
		defer u.End()

		a := device.New("uuid-a", "a", "w", 60, 1000)
		b := device.New("uuid-b", "b", "w", 60, 1000)
		if err := u.Devices().Add(ctx, a); err != nil {
			t.Fatal(err)
		}
		if err := u.Devices().Add(ctx, b); err != nil {
			t.Fatal(err)
		}
		b.Renew(1100)
		u.Commit()

		evts := u.CollectNewEvents()
		if len(evts) != 3 {
			t.Fatalf("got %d events, want 3", len(evts))
		}
		if _, ok := evts[0].(device.DeviceRegistered); !ok {
			t.Errorf("evts[0] = %T, want DeviceRegistered for a", evts[0])
		}
		if reg, ok := evts[1].(device.DeviceRegistered); !ok || reg.UUID != "uuid-b" {
			t.Errorf("evts[1] = %+v, want DeviceRegistered for b", evts[1])
		}
		if _, ok := evts[2].(device.DeviceKeptAlive); !ok {
			t.Errorf("evts[2] = %T, want DeviceKeptAlive", evts[2])
		}
	})

	t.Run("second collect returns only new events", func(t *testing.T) {
		u, _ := f.Begin(ctx)
		defer u.End()

		d, err := u.Devices().Get(ctx, "uuid-a")
		if err != nil {
			t.Fatal(err)
		}
		d.Renew(2000)
		u.Commit()

		if evts := u.CollectNewEvents(); len(evts) != 1 {
			t.Fatalf("first collect got %d events, want 1", len(evts))
		}
		if evts := u.CollectNewEvents(); len(evts) != 0 {
			t.Errorf("second collect got %d events, want 0", len(evts))
		}
	})

	t.Run("claimed devices are tracked", func(t *testing.T) {
		u, _ := f.Begin(ctx)
		defer u.End()

		claimed, err := u.Devices().ClaimExpired(ctx, 0, 5000)
		if err != nil {
			t.Fatal(err)
		}
		if len(claimed) == 0 {
			t.Fatal("expected at least one claimable device")
		}
		claimed[0].Consume("vigil-01", 5000)
		u.Commit()

		evts := u.CollectNewEvents()
		if len(evts) != 1 {
			t.Fatalf("got %d events, want 1", len(evts))
		}
		if _, ok := evts[0].(device.DeviceExpired); !ok {
			t.Errorf("evts[0] = %T, want DeviceExpired", evts[0])
		}
	})
}

func TestScopesSerialise(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	u, _ := f.Begin(ctx)

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		close(started)
		u2, err := f.Begin(ctx)
		if err == nil {
			u2.Commit()
			u2.End()
		}
		close(finished)
	}()

	<-started
	select {
	case <-finished:
		t.Fatal("second scope began while the first was open")
	default:
	}

	u.Commit()
	u.End()
	<-finished
}
