package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "vault_bot"

// Metrics are the counters fed by the effect handler and the store writer.
type Metrics struct {
	Registry *prometheus.Registry

	Trades      *prometheus.CounterVec
	Profit      *prometheus.CounterVec
	Orders      *prometheus.CounterVec
	Logs        *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Resolved trades by mode and result.",
		}, []string{"mode", "result"}),
		Profit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_profit_abs_total",
			Help:      "Absolute profit of resolved trades by mode and result, in account currency.",
		}, []string{"mode", "result"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Live orders by outcome of the dispatch.",
		}, []string{"outcome"}),
		Logs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_logs_total",
			Help:      "Engine log entries by type.",
		}, []string{"type"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed or dropped persistence writes.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Trades, m.Profit, m.Orders, m.Logs, m.StoreErrors,
	)
	return m
}

// Gauge registers a gauge read from f at scrape time.
func (m *Metrics) Gauge(name, help string, f func() float64) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, f))
}
