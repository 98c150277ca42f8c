// Package device contains the dead man's switch domain model.
//
// A Device is registered with a time-to-live and a last-will payload. It must
// send periodic keep-alives to push its expiry (fire_at) forward; a device
// whose fire_at passes without renewal is claimed by the expiry poller and
// consumed exactly once, at which point its last will is delivered.
//
// The package owns:
//   - the Device aggregate and its pending domain event queue
//   - the command and event message types routed by the bus
//   - the Store contract (identity index + fire-at time index with one-shot
//     claim semantics) and its two implementations: the in-memory reference
//     store and the SQLite-backed durable store
//
// Transaction demarcation (snapshots, rollback, event harvesting) lives in
// the uow package; business logic lives in the service package.
package device
