package bus

import (
	"context"
	"fmt"
)

// Message is anything that can be dispatched: a Command or an Event.
type Message any

// Command is an imperative request. Implementations return a stable name
// used to look up the single registered handler.
type Command interface {
	CommandName() string
}

// Event is a fact about a state change that already happened.
type Event interface {
	EventName() string
}

// CommandHandler executes one command. It returns the messages generated by
// the work (typically events harvested from a unit of work) for the bus to
// dispatch next, or an error that propagates to the Dispatch caller.
type CommandHandler func(ctx context.Context, cmd Command) ([]Message, error)

// EventHandler observes one event. Returned messages join the dispatch
// queue; errors are logged and swallowed.
type EventHandler func(ctx context.Context, evt Event) ([]Message, error)

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Bus routes messages to handlers registered at wiring time.
//
// The handler tables are written during bootstrap and read-only afterwards;
// Dispatch keeps its work queue on the stack, so concurrent Dispatch calls
// never share mutable state through the bus itself.
type Bus struct {
	commands map[string]CommandHandler
	events   map[string][]EventHandler
	logger   Logger
}

// New creates an empty bus.
func New(logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		commands: make(map[string]CommandHandler),
		events:   make(map[string][]EventHandler),
		logger:   logger,
	}
}

// HandleCommand binds the single handler for a command name. Binding the
// same name twice is a wiring bug and fails loudly.
func (b *Bus) HandleCommand(name string, h CommandHandler) error {
	if _, ok := b.commands[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
	}
	b.commands[name] = h
	return nil
}

// SubscribeEvent appends an observer for an event name. Observers run in
// registration order.
func (b *Bus) SubscribeEvent(name string, h EventHandler) {
	b.events[name] = append(b.events[name], h)
}

// Dispatch processes a message and every message it transitively generates.
//
// It returns only after the queue empties: the command plus its full event
// cascade have finished. A command failure is returned to the caller; event
// observer failures are logged and do not surface. A message that is
// neither a Command nor an Event fails with ErrInvalidMessageType.
func (b *Bus) Dispatch(ctx context.Context, msg Message) error {
	queue := []Message{msg}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]

		switch m := head.(type) {
		case Command:
			generated, err := b.dispatchCommand(ctx, m)
			if err != nil {
				return err
			}
			queue = append(queue, generated...)
		case Event:
			queue = append(queue, b.dispatchEvent(ctx, m)...)
		default:
			return fmt.Errorf("%w: %T", ErrInvalidMessageType, head)
		}
	}
	return nil
}

// dispatchCommand runs the command's single handler. A missing handler is a
// configuration error, unlike events where no observers is a safe no-op.
func (b *Bus) dispatchCommand(ctx context.Context, cmd Command) ([]Message, error) {
	name := cmd.CommandName()
	handler, ok := b.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledCommand, name)
	}

	b.logger.Debug("dispatching command", "command", name)
	generated, err := handler(ctx, cmd)
	if err != nil {
		b.logger.Error("command failed", "command", name, "error", err)
		return nil, err
	}
	return generated, nil
}

// dispatchEvent fans the event out to its observers, isolating failures so
// every observer gets its chance to run.
func (b *Bus) dispatchEvent(ctx context.Context, evt Event) []Message {
	name := evt.EventName()
	var generated []Message
	for _, handler := range b.events[name] {
		more, err := handler(ctx, evt)
		if err != nil {
			b.logger.Error("event handler failed", "event", name, "error", err)
			continue
		}
		generated = append(generated, more...)
	}
	return generated
}
