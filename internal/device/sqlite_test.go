package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the vigil schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// One connection only: each new connection would get its own empty
	// in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE devices (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			last_will TEXT NOT NULL,
			ttl INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			fire_at INTEGER NOT NULL,
			consumer_id TEXT,
			consumed INTEGER NOT NULL DEFAULT 0,
			version_number INTEGER NOT NULL DEFAULT 0
		) STRICT;
		CREATE TABLE fire_schedule (
			uuid TEXT PRIMARY KEY REFERENCES devices(uuid) ON DELETE CASCADE,
			fire_at INTEGER NOT NULL
		) STRICT;
		CREATE INDEX idx_fire_schedule_fire_at ON fire_schedule(fire_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteStore_AddGet(t *testing.T) {
	s := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	addDevice(t, s, "a", 100)

	t.Run("get round-trips all fields", func(t *testing.T) {
		d, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if d.Name != "device a" || d.LastWill != "will a" {
			t.Errorf("fields diverge: %+v", d)
		}
		if d.FireAt != 100 || d.CreatedAt != 40 || d.TTL != 60 {
			t.Errorf("timestamps diverge: %+v", d)
		}
		if d.ConsumerID != nil || d.Consumed {
			t.Errorf("consumption fields should be zero: %+v", d)
		}
	})

	t.Run("duplicate add fails", func(t *testing.T) {
		err := s.Add(ctx, &Device{UUID: "a", Name: "dup", FireAt: 200})
		if !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Add() error = %v, want ErrDeviceExists", err)
		}
	})

	t.Run("missing uuid fails", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteStore_ConsumptionRoundTrip(t *testing.T) {
	s := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	addDevice(t, s, "a", 100)

	consumed := true
	consumerID := "vigil-01"
	version := int64(1)
	err := s.Update(ctx, "a", Update{
		Consumed:      &consumed,
		ConsumerID:    &consumerID,
		VersionNumber: &version,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	d, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !d.Consumed || d.VersionNumber != 1 {
		t.Errorf("consumption not persisted: %+v", d)
	}
	if d.ConsumerID == nil || *d.ConsumerID != "vigil-01" {
		t.Errorf("ConsumerID = %v, want vigil-01", d.ConsumerID)
	}
}

func TestSQLiteStore_ClaimExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("window is inclusive and ordered", func(t *testing.T) {
		s := NewSQLiteStore(setupTestDB(t))
		addDevice(t, s, "zz", 10)
		addDevice(t, s, "aa", 10)
		addDevice(t, s, "mid", 15)
		addDevice(t, s, "end", 20)
		addDevice(t, s, "after", 21)

		claimed, err := s.ClaimExpired(ctx, 10, 20)
		if err != nil {
			t.Fatalf("ClaimExpired() error = %v", err)
		}
		got := claimedUUIDs(claimed)
		want := []string{"aa", "zz", "mid", "end"}
		if len(got) != len(want) {
			t.Fatalf("claimed %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("claimed[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("claim is one-shot per device", func(t *testing.T) {
		s := NewSQLiteStore(setupTestDB(t))
		addDevice(t, s, "a", 10)

		if claimed, _ := s.ClaimExpired(ctx, 0, 20); len(claimed) != 1 {
			t.Fatalf("first claim returned %d devices, want 1", len(claimed))
		}
		if claimed, _ := s.ClaimExpired(ctx, 0, 20); len(claimed) != 0 {
			t.Errorf("second claim returned devices, want none")
		}
		if _, err := s.Get(ctx, "a"); err != nil {
			t.Errorf("Get() after claim error = %v", err)
		}
	})
}

func TestSQLiteStore_UpdateRebuckets(t *testing.T) {
	s := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	addDevice(t, s, "a", 100)

	newFireAt := int64(500)
	if err := s.Update(ctx, "a", Update{FireAt: &newFireAt}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if claimed, _ := s.ClaimExpired(ctx, 100, 100); len(claimed) != 0 {
		t.Error("claim on the old second returned the renewed device")
	}
	claimed, _ := s.ClaimExpired(ctx, 500, 500)
	if len(claimed) != 1 || claimed[0].UUID != "a" {
		t.Errorf("claim on the new second = %v, want [a]", claimedUUIDs(claimed))
	}

	t.Run("fire_at update after a claim re-schedules", func(t *testing.T) {
		// The schedule row was deleted by the claim; the upsert recreates it.
		laterFireAt := int64(900)
		if err := s.Update(ctx, "a", Update{FireAt: &laterFireAt}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		claimed, _ := s.ClaimExpired(ctx, 900, 900)
		if len(claimed) != 1 {
			t.Error("re-scheduled device not claimable")
		}
	})

	t.Run("update of missing uuid is a no-op", func(t *testing.T) {
		fireAt := int64(1)
		if err := s.Update(ctx, "ghost", Update{FireAt: &fireAt}); err != nil {
			t.Errorf("Update() error = %v, want nil", err)
		}
	})
}

func TestSQLiteStore_RemoveCascades(t *testing.T) {
	s := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	addDevice(t, s, "a", 100)
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() after remove error = %v, want ErrDeviceNotFound", err)
	}
	if claimed, _ := s.ClaimExpired(ctx, 100, 100); len(claimed) != 0 {
		t.Error("removed device still claimable")
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
}

func TestSQLiteStore_SnapshotRestore(t *testing.T) {
	s := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	addDevice(t, s, "a", 100)
	addDevice(t, s, "b", 200)

	// Claim "a" so its schedule row is gone before the snapshot.
	if _, err := s.ClaimExpired(ctx, 100, 100); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if err := s.Remove(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(ctx, snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if _, err := s.Get(ctx, "b"); err != nil {
		t.Errorf("Get(b) after restore error = %v", err)
	}
	claimed, _ := s.ClaimExpired(ctx, 0, 1000)
	if len(claimed) != 1 || claimed[0].UUID != "b" {
		t.Errorf("claim after restore = %v, want [b] only; a was already fired",
			claimedUUIDs(claimed))
	}
}
