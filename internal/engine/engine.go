package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vault_bot/internal/indicator"
	"vault_bot/internal/journal"
	"vault_bot/internal/models"
)

var (
	// ErrQueueFull is returned by Send when the event queue has no room.
	ErrQueueFull = errors.New("engine: event queue full")

	// ErrStopped is returned when the loop is no longer consuming events.
	ErrStopped = errors.New("engine: stopped")
)

const DefaultQueueSize = 4096

// EffectHandler executes the effects that leave the engine: persistence,
// order dispatch and log fan-out. Handle is called from the loop and must not
// block; slow work belongs in its own goroutine.
type EffectHandler interface {
	Handle(ctx context.Context, eff Effect)
}

// EffectHandlerFunc adapts a function to EffectHandler.
type EffectHandlerFunc func(ctx context.Context, eff Effect)

func (f EffectHandlerFunc) Handle(ctx context.Context, eff Effect) { f(ctx, eff) }

// Engine is the single owner of State. Producers enqueue events; only Run
// applies them.
type Engine struct {
	machine *Machine
	sched   *Scheduler
	journal *journal.Journal
	handler EffectHandler
	now     func() time.Time

	events chan Event
	done   chan struct{}

	mu    sync.RWMutex
	state State
}

func New(m *Machine, j *journal.Journal, h EffectHandler) *Engine {
	e := &Engine{
		machine: m,
		journal: j,
		handler: h,
		now:     time.Now,
		events:  make(chan Event, DefaultQueueSize),
		done:    make(chan struct{}),
		state:   NewState(m.Config()),
	}
	e.sched = NewScheduler(m.Config().EvalInterval, func(tf TimerFire) bool {
		return e.Send(tf) == nil
	})
	return e
}

// Run consumes events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.sched.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.apply(ctx, ev)
		}
	}
}

func (e *Engine) apply(ctx context.Context, ev Event) {
	e.mu.RLock()
	cur := e.state
	e.mu.RUnlock()

	next, effects := e.machine.Apply(cur, ev)

	e.mu.Lock()
	e.state = next
	e.mu.Unlock()

	for _, eff := range effects {
		e.execute(ctx, eff)
	}
}

func (e *Engine) execute(ctx context.Context, eff Effect) {
	switch x := eff.(type) {
	case StartTimer:
		e.sched.Start(x.Gen)
	case CancelTimer:
		e.sched.Stop()
	case EmitLog:
		e.journal.Add(models.LogEntry{
			ID:        uuid.NewString(),
			Timestamp: e.now(),
			Type:      x.Type,
			Message:   x.Message,
			Data:      x.Data,
		})
		if e.handler != nil {
			e.handler.Handle(ctx, eff)
		}
	default:
		if e.handler != nil {
			e.handler.Handle(ctx, eff)
		}
	}
}

// Send enqueues ev without blocking.
func (e *Engine) Send(ev Event) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}
	select {
	case e.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Submit enqueues ev, waiting for room. Used for events that must not be
// dropped, such as order confirmations.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}
	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

func (e *Engine) Config() Config { return e.machine.Config() }

func (e *Engine) Market() *indicator.Tracker { return e.machine.Market() }

func (e *Engine) Logs(limit int) []models.LogEntry { return e.journal.Recent(limit) }

// Convenience producers for command surfaces.

func (e *Engine) Start() error { return e.Send(StartRequested{At: e.now()}) }

// Calibrate starts a paper session regardless of the live gate.
func (e *Engine) Calibrate() error {
	return e.Send(StartRequested{At: e.now(), Calibration: true})
}

func (e *Engine) Stop() error { return e.Send(StopRequested{}) }

func (e *Engine) ToggleMode() error { return e.Send(ToggleModeRequested{}) }

func (e *Engine) SetDailyLossLimit(limit float64) error {
	return e.Send(DailyLossLimitRequested{Limit: limit})
}
