package engine

import (
	"time"

	"vault_bot/internal/models"
)

// Event is anything the engine loop consumes.
type Event interface {
	isEvent()
}

// Tick is one quote from the price feed.
type Tick struct {
	Symbol string
	Price  float64
	At     time.Time
}

func (Tick) isEvent() {}

// TimerFire is emitted by the evaluation scheduler. Gen ties it to one Start.
type TimerFire struct {
	Gen uint64
	At  time.Time
}

func (TimerFire) isEvent() {}

// OrderConfirmed carries the settled result of a dispatched contract.
type OrderConfirmed struct {
	TradeID    string
	Symbol     models.Symbol
	Result     models.Result
	Payout     float64
	Profit     float64
	ContractID int64
	At         time.Time
}

func (OrderConfirmed) isEvent() {}

// OrderFailed reports that a dispatched order never became a contract.
type OrderFailed struct {
	TradeID string
	Symbol  models.Symbol
	Reason  string
	At      time.Time
}

func (OrderFailed) isEvent() {}

// User commands

// StartRequested starts the evaluation cycle. Calibration asks for a paper
// session that accumulates training trades before the live gate opens.
type StartRequested struct {
	At          time.Time
	Calibration bool
}

func (StartRequested) isEvent() {}

type StopRequested struct{}

func (StopRequested) isEvent() {}

type ToggleModeRequested struct{}

func (ToggleModeRequested) isEvent() {}

type DailyLossLimitRequested struct {
	Limit float64
}

func (DailyLossLimitRequested) isEvent() {}

// Store and transport notifications

type SettingsLoaded struct {
	Settings models.VaultSettings
}

func (SettingsLoaded) isEvent() {}

type AuthorizationChanged struct {
	OK       bool
	Balance  float64
	Currency string
	LoginID  string
	Reason   string
}

func (AuthorizationChanged) isEvent() {}

type BalanceChanged struct {
	Balance  float64
	Currency string
}

func (BalanceChanged) isEvent() {}

type TransportStatus struct {
	Connected bool
	Attempt   int
	Reason    string
}

func (TransportStatus) isEvent() {}
