// Package uow provides transaction scopes over the device store.
//
// A Factory is bound to one shared store. Begin opens a scope: it takes the
// factory's transaction lock (serialising scopes against each other,
// including the expiry poller's), snapshots the store, and hands back a
// UnitOfWork exposing a seen-tracking view of the store. Commit finalises;
// End releases the scope, rolling the store back to the entry snapshot if
// Commit was never reached. CollectNewEvents drains the pending event
// queues of every aggregate touched during the scope, in touch order.
//
// The canonical handler shape:
//
//	u, err := factory.Begin(ctx)
//	if err != nil {
//	    return nil, err
//	}
//	defer u.End()
//	// ... mutate through u.Devices() ...
//	if err := u.Commit(); err != nil {
//	    return nil, err
//	}
//	return u.CollectNewEvents(), nil
//
// Snapshot/restore rollback trades memory for simplicity: the aggregate set
// is small and bounded by expected device counts, and the same discipline
// works unchanged for the durable SQLite store.
package uow
