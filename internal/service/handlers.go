package service

import (
	"context"
	"time"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
	"github.com/nerrad567/vigil-core/internal/uow"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service implements the command handlers and the read operations the
// transport layer needs. All methods are safe for concurrent use; the
// unit-of-work factory serialises scopes internally.
type Service struct {
	uow    *uow.Factory
	logger Logger

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewService creates a service over the given unit-of-work factory.
func NewService(factory *uow.Factory, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		uow:    factory,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterDevice creates a device with created_at = now and
// fire_at = now + ttl.
func (s *Service) RegisterDevice(ctx context.Context, cmd device.RegisterDevice) ([]bus.Message, error) {
	u, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	d := device.New(cmd.UUID, cmd.Name, cmd.LastWill, cmd.TTL, s.unixNow())
	if err := u.Devices().Add(ctx, d); err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("device registered",
		"uuid", d.UUID,
		"name", d.Name,
		"ttl", d.TTL,
		"fire_at", d.FireAt,
	)
	return messages(u.CollectNewEvents()), nil
}

// RemoveDevice deletes a device. Returns device.ErrDeviceNotFound if the
// UUID is unknown, leaving the store untouched.
func (s *Service) RemoveDevice(ctx context.Context, cmd device.RemoveDevice) ([]bus.Message, error) {
	u, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	d, err := u.Devices().Get(ctx, cmd.UUID)
	if err != nil {
		return nil, err
	}
	d.MarkRemoved()
	if err := u.Devices().Remove(ctx, cmd.UUID); err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("device removed", "uuid", cmd.UUID)
	return messages(u.CollectNewEvents()), nil
}

// KeepAliveDevice renews a device's expiry to now + its stored TTL. The
// renewal is measured from now, not extended from the old fire_at: a late
// keep-alive still grants a full fresh window. Returns
// device.ErrDeviceNotFound if the UUID is unknown.
func (s *Service) KeepAliveDevice(ctx context.Context, cmd device.KeepAliveDevice) ([]bus.Message, error) {
	u, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	d, err := u.Devices().Get(ctx, cmd.UUID)
	if err != nil {
		return nil, err
	}
	d.Renew(s.unixNow())

	// Persist through the store so the fire-at index re-buckets.
	if err := u.Devices().Update(ctx, d.UUID, device.Update{FireAt: &d.FireAt}); err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}

	s.logger.Debug("device kept alive", "uuid", d.UUID, "fire_at", d.FireAt)
	return messages(u.CollectNewEvents()), nil
}

// ConsumeDevice fires a device's last will. Consumption is idempotent: a
// repeat consume bumps the version number and logs a warning but emits no
// second DeviceExpired event. Returns device.ErrDeviceNotFound if the UUID
// is unknown.
func (s *Service) ConsumeDevice(ctx context.Context, cmd device.ConsumeDevice) ([]bus.Message, error) {
	u, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	d, err := u.Devices().Get(ctx, cmd.UUID)
	if err != nil {
		return nil, err
	}
	if first := d.Consume(cmd.ConsumerID, s.unixNow()); !first {
		s.logger.Warn("device already consumed",
			"uuid", d.UUID,
			"consumer_id", cmd.ConsumerID,
			"first_consumer_id", derefOr(d.ConsumerID, ""),
		)
	}

	upd := device.Update{
		Consumed:      &d.Consumed,
		VersionNumber: &d.VersionNumber,
	}
	if d.ConsumerID != nil {
		upd.ConsumerID = d.ConsumerID
	}
	if err := u.Devices().Update(ctx, d.UUID, upd); err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}
	return messages(u.CollectNewEvents()), nil
}

// GetDevice retrieves a single device for the transport layer.
func (s *Service) GetDevice(ctx context.Context, uuid string) (*device.Device, error) {
	u, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	d, err := u.Devices().Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDevices returns every registered device.
func (s *Service) ListDevices(ctx context.Context) (map[string]*device.Device, error) {
	u, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	all, err := u.Devices().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}
	return all, nil
}

// SetClock overrides the service's clock. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) unixNow() int64 {
	return s.now().UTC().Unix()
}

// messages converts harvested domain events into bus messages.
func messages(evts []device.Event) []bus.Message {
	if len(evts) == 0 {
		return nil
	}
	msgs := make([]bus.Message, len(evts))
	for i, e := range evts {
		msgs[i] = e
	}
	return msgs
}

// derefOr returns *s or the fallback when s is nil.
func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
