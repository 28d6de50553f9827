package service

import (
	"context"
	"errors"

	"vault_bot/internal/models"
)

// ErrUnresolved is returned when a trade without a final result is saved.
var ErrUnresolved = errors.New("vault: trade is not resolved")

var errQueueFull = errors.New("vault: writer queue full")

// Store persists the vault settings singleton and the trade history.
type Store interface {
	// LoadSettings returns the stored record; ok is false when none exists yet.
	LoadSettings(ctx context.Context) (s models.VaultSettings, ok bool, err error)
	// SaveSettings merges patch into the stored record and returns the result.
	SaveSettings(ctx context.Context, patch models.SettingsPatch) (models.VaultSettings, error)
	// InsertTrade stores a resolved trade. Inserting the same id twice is a no-op.
	InsertTrade(ctx context.Context, t models.Trade) error
	// ListTrades returns matching trades newest first, at most filter.PageSize().
	ListTrades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error)
}
