// Package bus routes command and event messages to their handlers.
//
// A command is an imperative request with exactly one handler; its failure
// propagates to the dispatcher's caller. An event is a fact broadcast to
// zero or more observers; each observer's failure is logged and isolated so
// a broken observer cannot abort its siblings or the triggering command.
//
// Dispatch drains a FIFO queue local to the call: handlers return the
// messages their work generated (harvested from the unit of work), and those
// are appended to the queue tail, so one external command finishes its whole
// event cascade before Dispatch returns. No handler in this codebase
// produces a command, which keeps cascades finite by construction.
package bus
