package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vault_bot/internal/engine"
	"vault_bot/internal/models"
	healthsvc "vault_bot/internal/modules/health/service"
	"vault_bot/pkg/logger"
)

const orderFailTimeout = 5 * time.Second

// Dispatcher sends live orders to the broker.
type Dispatcher interface {
	Dispatch(o models.Order) error
}

// Persister queues store writes.
type Persister interface {
	SaveTrade(t models.Trade) bool
	SaveSettings(p models.SettingsPatch) bool
}

// Notifier receives every engine log entry, e.g. to forward it to a chat.
type Notifier interface {
	Notify(ctx context.Context, typ models.LogType, msg string)
}

// Submitter is how failed dispatches are reported back to the loop.
type Submitter interface {
	Submit(ctx context.Context, ev engine.Event) error
}

// Effects executes engine effects outside the transition function. Handle
// runs on the engine loop, so anything that can block is moved off it.
type Effects struct {
	persist Persister
	metrics *healthsvc.Metrics

	dispatcher Dispatcher
	loop       Submitter
	notifiers  []Notifier
}

func NewEffects(p Persister, m *healthsvc.Metrics) *Effects {
	return &Effects{persist: p, metrics: m}
}

// Bind attaches the order path. Call before the engine starts.
func (e *Effects) Bind(d Dispatcher, loop Submitter) {
	e.dispatcher = d
	e.loop = loop
}

// Subscribe adds n to the log fan-out. Call before the engine starts.
func (e *Effects) Subscribe(n Notifier) {
	e.notifiers = append(e.notifiers, n)
}

func (e *Effects) Handle(ctx context.Context, eff engine.Effect) {
	switch x := eff.(type) {
	case engine.EmitLog:
		e.onLog(ctx, x)
	case engine.SaveTrade:
		e.countTrade(x.Trade)
		e.persist.SaveTrade(x.Trade)
	case engine.SaveSettings:
		e.persist.SaveSettings(x.Patch)
	case engine.DispatchOrder:
		go e.dispatch(ctx, x.Order)
	default:
		logger.Warn("unhandled effect %T", eff)
	}
}

func (e *Effects) onLog(ctx context.Context, l engine.EmitLog) {
	fields := []zap.Field{zap.String("type", string(l.Type))}
	if len(l.Data) > 0 {
		fields = append(fields, zap.Any("data", l.Data))
	}
	switch l.Type {
	case models.LogError:
		logger.L().Error(l.Message, fields...)
	case models.LogWarning:
		logger.L().Warn(l.Message, fields...)
	default:
		logger.L().Info(l.Message, fields...)
	}
	if e.metrics != nil {
		e.metrics.Logs.WithLabelValues(string(l.Type)).Inc()
	}
	for _, n := range e.notifiers {
		n.Notify(ctx, l.Type, l.Message)
	}
}

func (e *Effects) countTrade(t models.Trade) {
	if e.metrics == nil {
		return
	}
	mode := "live"
	if t.IsTraining {
		mode = "paper"
	}
	e.metrics.Trades.WithLabelValues(mode, string(t.Result)).Inc()
	abs := t.Profit
	if abs < 0 {
		abs = -abs
	}
	e.metrics.Profit.WithLabelValues(mode, string(t.Result)).Add(abs)
}

func (e *Effects) dispatch(ctx context.Context, o models.Order) {
	if e.dispatcher == nil {
		e.fail(ctx, o, "no order transport")
		return
	}
	if err := e.dispatcher.Dispatch(o); err != nil {
		logger.Error("dispatch %s: %v", o.TradeID, err)
		e.fail(ctx, o, err.Error())
		return
	}
	if e.metrics != nil {
		e.metrics.Orders.WithLabelValues("sent").Inc()
	}
}

func (e *Effects) fail(ctx context.Context, o models.Order, reason string) {
	if e.metrics != nil {
		e.metrics.Orders.WithLabelValues("failed").Inc()
	}
	if e.loop == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orderFailTimeout)
	defer cancel()
	ev := engine.OrderFailed{TradeID: o.TradeID, Symbol: o.Symbol, Reason: reason, At: time.Now()}
	if err := e.loop.Submit(ctx, ev); err != nil {
		logger.Error("report failed order %s: %v", o.TradeID, err)
	}
}
