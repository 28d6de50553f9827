package indicator

import (
	"sync"

	"vault_bot/internal/models"
)

// Config holds the indicator periods and RSI bands.
type Config struct {
	Capacity   int
	RSIPeriod  int
	EMAPeriod  int
	Oversold   float64
	Overbought float64
}

func DefaultConfig() Config {
	return Config{
		Capacity:   100,
		RSIPeriod:  14,
		EMAPeriod:  9,
		Oversold:   30,
		Overbought: 70,
	}
}

// Snapshot is the per-instrument indicator view recomputed on every tick.
type Snapshot struct {
	Symbol         models.Symbol `json:"symbol"`
	LastPrice      float64       `json:"last_price"`
	PriceChangePct float64       `json:"price_change_pct"`
	RSI            float64       `json:"rsi"`
	EMA            float64       `json:"ema"`
	SignalStrength float64       `json:"signal_strength"`
	IsActive       bool          `json:"is_active"`
	Samples        int           `json:"samples"`
}

// Tracker keeps one Series and Snapshot per whitelisted instrument.
// Writes come from the engine loop only; the lock serves outside readers.
type Tracker struct {
	cfg Config

	mu     sync.RWMutex
	series map[models.Symbol]*Series
	snaps  map[models.Symbol]Snapshot
}

func NewTracker(cfg Config) *Tracker {
	t := &Tracker{
		cfg:    cfg,
		series: make(map[models.Symbol]*Series, len(models.Whitelist)),
		snaps:  make(map[models.Symbol]Snapshot, len(models.Whitelist)),
	}
	for _, sym := range models.Whitelist {
		t.series[sym] = NewSeries(cfg.Capacity)
		t.snaps[sym] = Snapshot{Symbol: sym, RSI: 50}
	}
	return t
}

// OnTick appends the price and recomputes the instrument's snapshot.
// Symbols outside the whitelist are ignored and reported as false.
func (t *Tracker) OnTick(symbol string, price float64) bool {
	sym, ok := models.ParseSymbol(symbol)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.series[sym]
	s.Push(price)
	prices := s.Prices()

	rsi := RSI(prices, t.cfg.RSIPeriod)
	t.snaps[sym] = Snapshot{
		Symbol:         sym,
		LastPrice:      price,
		PriceChangePct: ChangePct(prices),
		RSI:            rsi,
		EMA:            EMA(prices, t.cfg.EMAPeriod),
		SignalStrength: SignalStrength(rsi, t.cfg.Oversold, t.cfg.Overbought),
		IsActive:       true,
		Samples:        len(prices),
	}
	return true
}

// Prices returns a copy of the instrument's window.
func (t *Tracker) Prices(sym models.Symbol) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.series[sym]
	if !ok {
		return nil
	}
	out := make([]float64, s.Len())
	copy(out, s.Prices())
	return out
}

func (t *Tracker) Snapshot(sym models.Symbol) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.snaps[sym]
	return s, ok
}

// Snapshots lists every instrument in whitelist order.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(models.Whitelist))
	for _, sym := range models.Whitelist {
		out = append(out, t.snaps[sym])
	}
	return out
}

func (t *Tracker) Config() Config { return t.cfg }
