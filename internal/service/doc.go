// Package service contains the command handlers, the business logic that
// sits between the bus and the device store.
//
// Every handler follows the same template: open a unit-of-work scope,
// mutate the aggregate and store, commit, and return the harvested domain
// events for the bus to cascade. Any error unwinds through the open scope,
// rolling the store back before it propagates to the dispatcher's caller.
//
// Wire binds the handlers and event observers to a bus with their
// dependencies closed over explicitly; there is no runtime dependency
// resolution.
package service
