package device

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the reference in-memory Store.
//
// Devices are indexed by UUID and by the exact second they are scheduled to
// fire. The fire-at index maps each second to the set of device UUIDs
// sharing that expiry; a reverse index records which second each device
// currently occupies, so a fire_at change always evicts the right bucket
// entry no matter what the caller did to its own copy of the aggregate.
// Empty buckets are pruned to bound memory.
//
// Get, GetAll, and ClaimExpired return independent copies, matching the
// SQLite store's scan-a-fresh-row behaviour: mutating a returned device
// changes nothing until the caller persists the fields through Update.
//
// Thread Safety: all methods are safe for concurrent use. Each operation is
// individually atomic; whole-scope serialisation is the unit of work's job.
type MemoryStore struct {
	mu        sync.RWMutex
	byUUID    map[string]*Device
	byFireAt  map[int64]map[string]struct{}
	scheduled map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUUID:    make(map[string]*Device),
		byFireAt:  make(map[int64]map[string]struct{}),
		scheduled: make(map[string]int64),
	}
}

// Get retrieves a copy of a device by UUID.
func (s *MemoryStore) Get(_ context.Context, uuid string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byUUID[uuid]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.Clone(), nil
}

// GetAll returns a copy of every device keyed by UUID.
func (s *MemoryStore) GetAll(_ context.Context) (map[string]*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]*Device, len(s.byUUID))
	for uuid, d := range s.byUUID {
		all[uuid] = d.Clone()
	}
	return all, nil
}

// Add inserts a new device into both indexes. The store keeps its own copy;
// the caller's instance stays free to accumulate domain events.
func (s *MemoryStore) Add(_ context.Context, d *Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUUID[d.UUID]; ok {
		return ErrDeviceExists
	}
	s.byUUID[d.UUID] = d.Clone()
	s.schedule(d.UUID, d.FireAt)
	return nil
}

// Update applies a partial update. A FireAt change moves the device's
// fire-at index entry in the same critical section, so a concurrent claim
// sees either the old bucket or the new one, never both or neither
// mid-move. A missing UUID is a no-op.
func (s *MemoryStore) Update(_ context.Context, uuid string, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byUUID[uuid]
	if !ok {
		return nil
	}
	if upd.Name != nil {
		d.Name = *upd.Name
	}
	if upd.LastWill != nil {
		d.LastWill = *upd.LastWill
	}
	if upd.TTL != nil {
		d.TTL = *upd.TTL
	}
	if upd.FireAt != nil {
		s.unschedule(uuid)
		d.FireAt = *upd.FireAt
		s.schedule(uuid, d.FireAt)
	}
	if upd.Consumed != nil {
		d.Consumed = *upd.Consumed
	}
	if upd.ConsumerID != nil {
		id := *upd.ConsumerID
		d.ConsumerID = &id
	}
	if upd.VersionNumber != nil {
		d.VersionNumber = *upd.VersionNumber
	}
	return nil
}

// Remove deletes a device from both indexes. A missing UUID is a no-op.
func (s *MemoryStore) Remove(_ context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUUID[uuid]; !ok {
		return nil
	}
	s.unschedule(uuid)
	delete(s.byUUID, uuid)
	return nil
}

// RemoveAll clears both indexes.
func (s *MemoryStore) RemoveAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUUID = make(map[string]*Device)
	s.byFireAt = make(map[int64]map[string]struct{})
	s.scheduled = make(map[string]int64)
	return nil
}

// ClaimExpired returns copies of the devices scheduled in [start, end]
// inclusive and drops their buckets from the fire-at index in one atomic
// step. Results are ordered by fire second, then UUID, so firing order is
// deterministic.
func (s *MemoryStore) ClaimExpired(_ context.Context, start, end int64) ([]*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seconds []int64
	for ts := range s.byFireAt {
		if ts >= start && ts <= end {
			seconds = append(seconds, ts)
		}
	}
	sort.Slice(seconds, func(i, j int) bool { return seconds[i] < seconds[j] })

	var claimed []*Device
	for _, ts := range seconds {
		uuids := make([]string, 0, len(s.byFireAt[ts]))
		for uuid := range s.byFireAt[ts] {
			uuids = append(uuids, uuid)
		}
		sort.Strings(uuids)
		for _, uuid := range uuids {
			delete(s.scheduled, uuid)
			if d, ok := s.byUUID[uuid]; ok {
				claimed = append(claimed, d.Clone())
			}
		}
		delete(s.byFireAt, ts)
	}
	return claimed, nil
}

// Snapshot captures a deep copy of both indexes.
func (s *MemoryStore) Snapshot(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Devices:  make(map[string]*Device, len(s.byUUID)),
		Schedule: make(map[string]int64, len(s.scheduled)),
	}
	for uuid, d := range s.byUUID {
		snap.Devices[uuid] = d.Clone()
	}
	for uuid, ts := range s.scheduled {
		snap.Schedule[uuid] = ts
	}
	return snap, nil
}

// Restore replaces the store contents with the snapshot. The snapshot is
// copied on the way in, so it can be restored more than once.
func (s *MemoryStore) Restore(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUUID = make(map[string]*Device, len(snap.Devices))
	s.byFireAt = make(map[int64]map[string]struct{})
	s.scheduled = make(map[string]int64, len(snap.Schedule))
	for uuid, d := range snap.Devices {
		s.byUUID[uuid] = d.Clone()
	}
	for uuid, ts := range snap.Schedule {
		s.schedule(uuid, ts)
	}
	return nil
}

// schedule records uuid as firing at ts in both the bucket and the reverse
// index. Callers hold mu.
func (s *MemoryStore) schedule(uuid string, ts int64) {
	bucket, ok := s.byFireAt[ts]
	if !ok {
		bucket = make(map[string]struct{})
		s.byFireAt[ts] = bucket
	}
	bucket[uuid] = struct{}{}
	s.scheduled[uuid] = ts
}

// unschedule removes a uuid from whichever bucket the reverse index says it
// occupies, pruning the bucket when it empties. An unscheduled (already
// claimed) uuid is a no-op. Callers hold mu.
func (s *MemoryStore) unschedule(uuid string) {
	ts, ok := s.scheduled[uuid]
	if !ok {
		return
	}
	delete(s.scheduled, uuid)

	bucket, ok := s.byFireAt[ts]
	if !ok {
		return
	}
	delete(bucket, uuid)
	if len(bucket) == 0 {
		delete(s.byFireAt, ts)
	}
}
