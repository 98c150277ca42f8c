// Package poller discovers expired devices and fires their last wills.
//
// On each tick the poller claims every device whose fire_at falls in the
// window since the previous tick, [lastPoll+1, now] inclusive, inside its
// own unit-of-work scope, then dispatches a consume command per claimed
// device. The window pointer advances after the batch regardless of
// individual firing outcomes: firing is at-most-once, best-effort, with no
// retry of a fire lost to a handler error.
//
// Ticks never overlap. A single goroutine drives the ticker, and a mutex
// guards CheckAndFire so an external trigger cannot race a scheduled tick;
// a pathologically slow tick simply delays (never doubles) the next one.
package poller
