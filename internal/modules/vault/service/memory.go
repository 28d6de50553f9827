package service

import (
	"context"
	"sort"
	"sync"

	"vault_bot/internal/models"
)

// Memory is the Store used when no database is configured.
type Memory struct {
	defaults models.VaultSettings

	mu       sync.RWMutex
	settings *models.VaultSettings
	trades   []models.Trade
	ids      map[string]struct{}
}

func NewMemory(defaults models.VaultSettings) *Memory {
	return &Memory{
		defaults: defaults,
		ids:      make(map[string]struct{}),
	}
}

func (m *Memory) LoadSettings(_ context.Context) (models.VaultSettings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return models.VaultSettings{}, false, nil
	}
	return *m.settings, true, nil
}

func (m *Memory) SaveSettings(_ context.Context, patch models.SettingsPatch) (models.VaultSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.defaults
	if m.settings != nil {
		cur = *m.settings
	}
	next := patch.Apply(cur)
	m.settings = &next
	return next, nil
}

func (m *Memory) InsertTrade(_ context.Context, t models.Trade) error {
	if !t.Resolved() {
		return ErrUnresolved
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[t.ID]; ok {
		return nil
	}
	m.ids[t.ID] = struct{}{}
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) ListTrades(_ context.Context, f models.TradeFilter) ([]models.Trade, error) {
	m.mu.RLock()
	out := make([]models.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		if matches(f, t) {
			out = append(out, t)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n := f.PageSize(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func matches(f models.TradeFilter, t models.Trade) bool {
	switch {
	case f.Symbol != "" && t.Symbol != f.Symbol:
		return false
	case f.Result != "" && t.Result != f.Result:
		return false
	case !f.From.IsZero() && t.Timestamp.Before(f.From):
		return false
	case !f.To.IsZero() && t.Timestamp.After(f.To):
		return false
	}
	return true
}
