package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
	"vault_bot/internal/signal"
)

// Rand is the source of paper-trade outcomes.
type Rand interface {
	Float64() float64
}

// Machine holds the transition function and the read-mostly collaborators it
// needs: indicators, the signal analyzer and the outcome source.
type Machine struct {
	cfg      Config
	market   *indicator.Tracker
	analyzer *signal.Analyzer
	rng      Rand
	newID    func() string
}

type MachineOption func(*Machine)

func WithIDs(f func() string) MachineOption {
	return func(m *Machine) { m.newID = f }
}

func WithPolicy(p signal.Policy) MachineOption {
	return func(m *Machine) { m.analyzer = signal.NewAnalyzer(p) }
}

func NewMachine(cfg Config, market *indicator.Tracker, rng Rand, opts ...MachineOption) *Machine {
	m := &Machine{
		cfg:      cfg,
		market:   market,
		analyzer: signal.NewAnalyzer(cfg.Policy),
		rng:      rng,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Machine) Config() Config { return m.cfg }

func (m *Machine) Market() *indicator.Tracker { return m.market }

// Apply returns the next state and the effects to run for one event.
func (m *Machine) Apply(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Tick:
		m.market.OnTick(e.Symbol, e.Price)
		return s, nil
	case TimerFire:
		return m.onTimer(s, e)
	case StartRequested:
		return m.start(s, e)
	case StopRequested:
		return m.stop(s)
	case ToggleModeRequested:
		return m.toggleMode(s)
	case DailyLossLimitRequested:
		return m.setDailyLossLimit(s, e.Limit)
	case OrderConfirmed:
		return m.onConfirmed(s, e)
	case OrderFailed:
		return m.onFailed(s, e)
	case SettingsLoaded:
		return m.onSettings(s, e.Settings)
	case AuthorizationChanged:
		return m.onAuthorization(s, e)
	case BalanceChanged:
		s.Balance = e.Balance
		if e.Currency != "" {
			s.Currency = e.Currency
		}
		return s, nil
	case TransportStatus:
		return m.onTransport(s, e)
	}
	return s, nil
}

func logf(t models.LogType, format string, args ...any) EmitLog {
	return EmitLog{Type: t, Message: fmt.Sprintf(format, args...)}
}

// rollover resets the daily loss window when at falls on a later local day.
func (m *Machine) rollover(s State, at time.Time) (State, []Effect) {
	loc := m.cfg.DayLocation
	if loc == nil || at.IsZero() {
		return s, nil
	}
	y, mo, d := at.In(loc).Date()
	open := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	if s.DayStart.IsZero() {
		s.DayStart = open
		return s, nil
	}
	if !open.After(s.DayStart) {
		return s, nil
	}
	prevLoss := s.DailyLoss
	s.DayStart = open
	s.DailyLoss = 0
	s.IsRecoveryMode = s.DailyLoss >= s.DailyLossLimit*m.cfg.RecoveryThreshold
	return s, []Effect{logf(models.LogInfo, "New trading day %s: daily loss %.2f reset", open.Format("2006-01-02"), prevLoss)}
}
