package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault_bot/internal/engine"
	"vault_bot/internal/models"
	healthsvc "vault_bot/internal/modules/health/service"
	"vault_bot/pkg/logger"
)

type fakePersister struct {
	trades  []models.Trade
	patches []models.SettingsPatch
}

func (p *fakePersister) SaveTrade(t models.Trade) bool {
	p.trades = append(p.trades, t)
	return true
}

func (p *fakePersister) SaveSettings(s models.SettingsPatch) bool {
	p.patches = append(p.patches, s)
	return true
}

type fakeDispatcher struct{ err error }

func (d fakeDispatcher) Dispatch(models.Order) error { return d.err }

type fakeLoop struct {
	mu     sync.Mutex
	events []engine.Event
}

func (l *fakeLoop) Submit(_ context.Context, ev engine.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *fakeLoop) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type fakeNotifier struct{ msgs []string }

func (n *fakeNotifier) Notify(_ context.Context, typ models.LogType, msg string) {
	n.msgs = append(n.msgs, string(typ)+":"+msg)
}

func TestEffects_PersistAndCount(t *testing.T) {
	logger.UseNop()
	p := &fakePersister{}
	m := healthsvc.NewMetrics()
	e := NewEffects(p, m)

	ctx := context.Background()
	e.Handle(ctx, engine.SaveTrade{Trade: models.Trade{ID: "a", Result: models.ResultLoss, Profit: -1.1, IsTraining: true}})
	e.Handle(ctx, engine.SaveTrade{Trade: models.Trade{ID: "b", Result: models.ResultWin, Profit: 0.85}})
	limit := 2.0
	e.Handle(ctx, engine.SaveSettings{Patch: models.SettingsPatch{DailyLossLimit: &limit}})

	assert.Len(t, p.trades, 2)
	require.Len(t, p.patches, 1)
	assert.Equal(t, 2.0, *p.patches[0].DailyLossLimit)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("paper", "LOSS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("live", "WIN")))
	assert.InDelta(t, 1.1, testutil.ToFloat64(m.Profit.WithLabelValues("paper", "LOSS")), 1e-9)
}

func TestEffects_LogFanOut(t *testing.T) {
	logger.UseNop()
	m := healthsvc.NewMetrics()
	e := NewEffects(&fakePersister{}, m)
	n := &fakeNotifier{}
	e.Subscribe(n)

	e.Handle(context.Background(), engine.EmitLog{Type: models.LogTrade, Message: "[PAPER] CALL R_10", Data: map[string]any{"stake": 1.0}})
	e.Handle(context.Background(), engine.EmitLog{Type: models.LogError, Message: "boom"})

	assert.Equal(t, []string{"trade:[PAPER] CALL R_10", "error:boom"}, n.msgs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logs.WithLabelValues("error")))
}

func TestEffects_DispatchFailureReportsBack(t *testing.T) {
	logger.UseNop()
	m := healthsvc.NewMetrics()
	e := NewEffects(&fakePersister{}, m)
	loop := &fakeLoop{}
	e.Bind(fakeDispatcher{err: errors.New("deriv: not connected")}, loop)

	e.Handle(context.Background(), engine.DispatchOrder{Order: models.Order{TradeID: "t-1", Symbol: models.SymbolR10}})

	require.Eventually(t, func() bool { return loop.len() == 1 }, time.Second, time.Millisecond)
	failed, ok := loop.events[0].(engine.OrderFailed)
	require.True(t, ok)
	assert.Equal(t, "t-1", failed.TradeID)
	assert.Equal(t, models.SymbolR10, failed.Symbol)
	assert.Equal(t, "deriv: not connected", failed.Reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Orders.WithLabelValues("failed")))
}

func TestEffects_DispatchSent(t *testing.T) {
	logger.UseNop()
	m := healthsvc.NewMetrics()
	e := NewEffects(&fakePersister{}, m)
	loop := &fakeLoop{}
	e.Bind(fakeDispatcher{}, loop)

	e.Handle(context.Background(), engine.DispatchOrder{Order: models.Order{TradeID: "t-2"}})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Orders.WithLabelValues("sent")) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, loop.len())
}
