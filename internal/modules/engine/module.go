package engine

import (
	"context"
	"time"

	"go.uber.org/fx"

	"vault_bot/internal/engine"
	"vault_bot/internal/indicator"
	"vault_bot/internal/journal"
	"vault_bot/internal/models"
	"vault_bot/internal/modules/config"
	derivsvc "vault_bot/internal/modules/deriv_websocket/service"
	"vault_bot/internal/modules/engine/service"
	healthsvc "vault_bot/internal/modules/health/service"
	vaultsvc "vault_bot/internal/modules/vault/service"
	"vault_bot/pkg/logger"
)

const (
	journalSize       = 200
	loadSettingsLimit = 10 * time.Second
)

func NewEngineConfig(cfg *config.Config) (engine.Config, error) {
	ec := engine.DefaultConfig()
	if cfg.Engine.Currency != "" {
		ec.Currency = cfg.Engine.Currency
	}
	if tz := cfg.Engine.DayRolloverTZ; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return engine.Config{}, err
		}
		ec.DayLocation = loc
	}
	return ec, nil
}

func NewEngine(cfg *config.Config, ec engine.Config, effects *service.Effects) *engine.Engine {
	tracker := indicator.NewTracker(ec.Indicators)
	m := engine.NewMachine(ec, tracker, engine.NewRand(cfg.Engine.PaperSeed))
	return engine.New(m, journal.New(journalSize), effects)
}

func NewEffects(w *vaultsvc.Writer, m *healthsvc.Metrics) *service.Effects {
	w.OnError = func(op string, _ error) {
		m.StoreErrors.WithLabelValues(op).Inc()
	}
	w.OnSettings = func(st models.VaultSettings) {
		logger.Info("vault settings stored: vault %.2f, floor %.2f, daily limit %.2f, min probability %.0f, paper trades %d",
			st.VaultBalance, st.ProtectedFloor, st.DailyLossLimit, st.MinProbability, st.PaperTradesCount)
	}
	return service.NewEffects(w, m)
}

// run starts the loop and restores the persisted settings into it.
func run(
	lc fx.Lifecycle,
	eng *engine.Engine,
	effects *service.Effects,
	feed *derivsvc.Client,
	store vaultsvc.Store,
	health *healthsvc.State,
	metrics *healthsvc.Metrics,
) {
	effects.Bind(feed, eng)
	registerGauges(metrics, eng, feed)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			go func() {
				defer close(done)
				if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("engine loop: %v", err)
				}
			}()

			loadCtx, loadCancel := context.WithTimeout(startCtx, loadSettingsLimit)
			defer loadCancel()
			st, ok, err := store.LoadSettings(loadCtx)
			switch {
			case err != nil:
				logger.Error("load vault settings: %v", err)
			case ok:
				if err := eng.Submit(loadCtx, engine.SettingsLoaded{Settings: st}); err != nil {
					logger.Error("restore vault settings: %v", err)
				}
			default:
				logger.Info("no stored vault settings, starting from defaults")
			}
			health.SetReady(true)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			health.SetReady(false)
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func registerGauges(m *healthsvc.Metrics, eng *engine.Engine, feed *derivsvc.Client) {
	gauge := func(name, help string, f func(engine.State) float64) {
		m.Gauge(name, help, func() float64 { return f(eng.State()) })
	}
	boolf := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	gauge("balance", "Account balance.", func(s engine.State) float64 { return s.Balance })
	gauge("vault", "Locked vault amount.", func(s engine.State) float64 { return s.Vault })
	gauge("protected_floor", "Balance the engine never trades below.", func(s engine.State) float64 { return s.ProtectedFloor })
	gauge("daily_loss", "Losses accumulated in the current day.", func(s engine.State) float64 { return s.DailyLoss })
	gauge("win_rate", "Win rate over all resolved trades, percent.", func(s engine.State) float64 { return s.WinRate })
	gauge("min_probability", "Current acceptance threshold, percent.", func(s engine.State) float64 { return s.MinProbability })
	gauge("current_stake", "Stake for the next non-recovery trade.", func(s engine.State) float64 { return s.CurrentStake })
	gauge("running", "1 while the evaluation cycle runs.", func(s engine.State) float64 { return boolf(s.IsRunning) })
	gauge("recovery_mode", "1 while recovery mode is active.", func(s engine.State) float64 { return boolf(s.IsRecoveryMode) })
	gauge("training", "1 in paper mode.", func(s engine.State) float64 { return boolf(s.IsTraining) })
	m.Gauge("feed_connected", "1 while the Deriv socket is up.", func() float64 { return boolf(feed.Connected()) })
	m.Gauge("feed_dropped_ticks", "Ticks dropped because the engine queue was full.", func() float64 {
		return float64(feed.DroppedTicks())
	})
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			NewEngineConfig,
			NewEffects,
			NewEngine,
		),
		fx.Invoke(run),
	)
}
