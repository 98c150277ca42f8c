package uow

import "errors"

// ErrNotInitialised is returned by Begin when the factory has no store
// bound. Hitting it means wiring ran in the wrong order.
var ErrNotInitialised = errors.New("uow: store not initialised")
