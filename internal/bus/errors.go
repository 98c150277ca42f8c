package bus

import "errors"

// Dispatch errors, checked with errors.Is().
var (
	// ErrUnhandledCommand is returned when a command has no registered
	// handler. This is a wiring bug, never a runtime condition.
	ErrUnhandledCommand = errors.New("bus: no handler registered for command")

	// ErrDuplicateHandler is returned when a second handler is bound to a
	// command name. Commands have exactly one handler.
	ErrDuplicateHandler = errors.New("bus: command handler already registered")

	// ErrInvalidMessageType is returned when a dispatched message is
	// neither a Command nor an Event.
	ErrInvalidMessageType = errors.New("bus: message is neither command nor event")
)
