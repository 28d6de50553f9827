package engine

import (
	"time"

	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
	"vault_bot/internal/signal"
)

// Config is the fixed policy table of the engine.
type Config struct {
	DefaultStake   float64
	MinStake       float64
	MaxStake       float64
	LossMultiplier float64
	PayoutRatio    float64

	MinProbability      float64
	MaxProbability      float64
	RecoveryThreshold   float64
	RecoveryStake       float64
	RecoveryProbability float64

	DailyLossLimit float64
	ProtectedFloor float64
	FloorIncrement float64
	VaultTrigger   float64

	MinPaperTrades       int
	ProbabilityIncrement float64
	WinRateThreshold     float64
	TradesPerCalibration int

	EvalInterval  time.Duration
	Currency      string
	ContractTicks int

	// nil disables the daily rollover
	DayLocation *time.Location

	Indicators indicator.Config
	Policy     signal.MeanReversion
}

func DefaultConfig() Config {
	return Config{
		DefaultStake:   1.00,
		MinStake:       0.35,
		MaxStake:       3.00,
		LossMultiplier: 1.1,
		PayoutRatio:    0.85,

		MinProbability:      75,
		MaxProbability:      95,
		RecoveryThreshold:   0.6,
		RecoveryStake:       1.00,
		RecoveryProbability: 90,

		DailyLossLimit: 1.50,
		ProtectedFloor: 30.03,
		FloorIncrement: 1.00,
		VaultTrigger:   1.00,

		MinPaperTrades:       10,
		ProbabilityIncrement: 1,
		WinRateThreshold:     85,
		TradesPerCalibration: 5,

		EvalInterval:  2 * time.Second,
		Currency:      "USD",
		ContractTicks: 1,

		Indicators: indicator.DefaultConfig(),
		Policy:     signal.DefaultMeanReversion(),
	}
}

// Settings is the persisted record a fresh store starts from.
func (c Config) Settings() models.VaultSettings {
	return models.VaultSettings{
		ProtectedFloor: c.ProtectedFloor,
		DailyLossLimit: c.DailyLossLimit,
		MinProbability: c.MinProbability,
	}
}
