package poller

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
	"github.com/nerrad567/vigil-core/internal/uow"
)

// DefaultIntervalSeconds is the poll cadence when none is configured.
const DefaultIntervalSeconds = 10

// Dispatcher is the interface the poller needs from the bus.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg bus.Message) error
}

// Logger defines the logging interface used by the Poller.
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

// Config holds poller construction parameters.
type Config struct {
	// IntervalSeconds is the tick cadence. Defaults to
	// DefaultIntervalSeconds when zero or negative.
	IntervalSeconds int

	// ConsumerID identifies this process on the devices it fires.
	ConsumerID string

	// CatchUp opens the first window at second 1 instead of startup time,
	// so a durable store's overdue devices fire on the first tick after a
	// restart. Leave false for memory-backed stores.
	CatchUp bool
}

// Poller periodically claims and fires expired devices.
//
// It runs on its own cadence, fully decoupled from request handling; the
// shared store is the only point of contact, and the unit-of-work factory
// serialises the claim against concurrent command scopes.
type Poller struct {
	uow        *uow.Factory
	dispatcher Dispatcher
	interval   time.Duration
	consumerID string
	logger     Logger

	// tickMu makes CheckAndFire non-reentrant; lastPoll is only touched
	// while holding it.
	tickMu   sync.Mutex
	lastPoll int64

	// now is the clock; overridable in tests.
	now func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller. The first window opens at construction time unless
// cfg.CatchUp is set.
func New(factory *uow.Factory, dispatcher Dispatcher, cfg Config, logger Logger) *Poller {
	if logger == nil {
		logger = noopLogger{}
	}
	interval := cfg.IntervalSeconds
	if interval <= 0 {
		interval = DefaultIntervalSeconds
	}

	p := &Poller{
		uow:        factory,
		dispatcher: dispatcher,
		interval:   time.Duration(interval) * time.Second,
		consumerID: cfg.ConsumerID,
		logger:     logger,
		now:        time.Now,
	}
	if !cfg.CatchUp {
		p.lastPoll = p.now().UTC().Unix()
	}
	return p
}

// Start launches the ticker goroutine. Stop or context cancellation ends it.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.logger.Info("expiry poller started",
			"interval", p.interval.String(),
			"consumer_id", p.consumerID,
		)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.CheckAndFire(ctx); err != nil {
					p.logger.Error("poll tick failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the ticker and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.logger.Info("expiry poller stopped")
}

// CheckAndFire runs one poll cycle. It is safe to trigger externally; a
// concurrent scheduled tick blocks rather than overlaps.
//
// The claim happens in its own committed unit of work, so each device is
// unscheduled exactly once even if its consume command later fails: a lost
// fire is not retried on the next tick.
func (p *Poller) CheckAndFire(ctx context.Context) error {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	end := p.now().UTC().Unix()
	start := p.lastPoll + 1
	if end < start {
		return nil
	}

	expired, err := p.claim(ctx, start, end)
	if err != nil {
		return err
	}
	// Advance past this window before firing: the batch is claimed, and a
	// firing failure must not cause the window to be scanned again.
	p.lastPoll = end

	if len(expired) == 0 {
		p.logger.Debug("poll window empty", "start", start, "end", end)
		return nil
	}
	p.logger.Info("expired devices claimed",
		"count", len(expired),
		"start", start,
		"end", end,
	)

	for _, d := range expired {
		cmd := device.ConsumeDevice{UUID: d.UUID, ConsumerID: p.consumerID}
		if err := p.dispatcher.Dispatch(ctx, cmd); err != nil {
			p.logger.Error("last-will firing failed",
				"uuid", d.UUID,
				"fire_at", d.FireAt,
				"error", err,
			)
		}
	}
	return nil
}

// claim opens a scope, claims the window, and commits.
func (p *Poller) claim(ctx context.Context, start, end int64) ([]*device.Device, error) {
	u, err := p.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer u.End()

	expired, err := u.Devices().ClaimExpired(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}
	return expired, nil
}

// SetClock overrides the poller's clock. Tests only.
func (p *Poller) SetClock(now func() time.Time) {
	p.now = now
}

// SetLastPoll overrides the window pointer. Tests only.
func (p *Poller) SetLastPoll(ts int64) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	p.lastPoll = ts
}
