package service

import (
	"context"
	"fmt"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
)

// Wire binds every command to its handler on the given bus. Event
// observers are attached separately (see the notify package); commands are
// bound here because the service owns all of them.
func Wire(b *bus.Bus, svc *Service) error {
	bindings := []struct {
		name    string
		handler bus.CommandHandler
	}{
		{device.RegisterDevice{}.CommandName(), command(svc.RegisterDevice)},
		{device.RemoveDevice{}.CommandName(), command(svc.RemoveDevice)},
		{device.KeepAliveDevice{}.CommandName(), command(svc.KeepAliveDevice)},
		{device.ConsumeDevice{}.CommandName(), command(svc.ConsumeDevice)},
	}

	for _, binding := range bindings {
		if err := b.HandleCommand(binding.name, binding.handler); err != nil {
			return err
		}
	}
	return nil
}

// command adapts a typed handler method to the bus handler signature. A
// payload of the wrong concrete type under a registered name is a wiring
// bug and fails the dispatch.
func command[C bus.Command](h func(context.Context, C) ([]bus.Message, error)) bus.CommandHandler {
	return func(ctx context.Context, cmd bus.Command) ([]bus.Message, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T for command %q", cmd, cmd.CommandName())
		}
		return h(ctx, typed)
	}
}
