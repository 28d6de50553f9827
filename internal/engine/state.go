package engine

import (
	"time"

	"vault_bot/internal/models"
)

// State is the engine's single mutable record. Only the engine loop writes it.
type State struct {
	IsRunning     bool          `json:"is_running"`
	IsTraining    bool          `json:"is_training"`
	CurrentSymbol models.Symbol `json:"current_symbol,omitempty"`

	Balance        float64 `json:"balance"`
	Currency       string  `json:"currency"`
	TotalProfit    float64 `json:"total_profit"`
	Vault          float64 `json:"vault"`
	ProtectedFloor float64 `json:"protected_floor"`

	DailyLoss      float64   `json:"daily_loss"`
	DailyLossLimit float64   `json:"daily_loss_limit"`
	IsRecoveryMode bool      `json:"is_recovery_mode"`
	DayStart       time.Time `json:"day_start"`

	TradesCount      int     `json:"trades_count"`
	WinsCount        int     `json:"wins_count"`
	LossesCount      int     `json:"losses_count"`
	WinRate          float64 `json:"win_rate"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	PaperTradesCount int     `json:"paper_trades_count"`

	MinProbability  float64       `json:"min_probability"`
	CurrentStake    float64       `json:"current_stake"`
	LastTradeResult models.Result `json:"last_trade_result,omitempty"`

	// live trade awaiting its confirmation; survives Stop
	Pending *models.Trade `json:"pending,omitempty"`

	Authorized bool `json:"authorized"`
	Connected  bool `json:"connected"`

	TimerGen uint64 `json:"-"`
}

// NewState is the boot state: idle, in training, default policy values.
func NewState(cfg Config) State {
	return State{
		IsTraining:     true,
		Currency:       cfg.Currency,
		ProtectedFloor: cfg.ProtectedFloor,
		DailyLossLimit: cfg.DailyLossLimit,
		MinProbability: cfg.MinProbability,
		CurrentStake:   cfg.DefaultStake,
	}
}

// ActiveStake is the stake the next trade would use.
func (s State) ActiveStake(cfg Config) float64 {
	if s.IsRecoveryMode {
		return cfg.RecoveryStake
	}
	return s.CurrentStake
}

// Threshold is the acceptance bar for candidates.
func (s State) Threshold(cfg Config) float64 {
	if s.IsRecoveryMode {
		return cfg.RecoveryProbability
	}
	return s.MinProbability
}

func (s State) CanStartLive(cfg Config) bool {
	return !s.IsTraining || s.PaperTradesCount >= cfg.MinPaperTrades
}

func (s State) Mode() string {
	if s.IsTraining {
		return "TRAINING"
	}
	return "LIVE"
}

func (s State) DailyLimitReached() bool {
	return s.DailyLoss >= s.DailyLossLimit
}

func winRate(wins, trades int) float64 {
	if trades == 0 {
		return 0
	}
	return float64(wins) / float64(trades) * 100
}

// Clone copies s so callers outside the loop cannot reach the pending trade.
func (s State) Clone() State {
	if s.Pending != nil {
		p := *s.Pending
		s.Pending = &p
	}
	return s
}
