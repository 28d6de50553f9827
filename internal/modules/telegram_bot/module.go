package telegram

import (
	"context"

	"go.uber.org/fx"

	"vault_bot/internal/engine"
	"vault_bot/internal/modules/config"
	derivsvc "vault_bot/internal/modules/deriv_websocket/service"
	enginesvc "vault_bot/internal/modules/engine/service"
	"vault_bot/internal/modules/telegram_bot/service"
	vaultsvc "vault_bot/internal/modules/vault/service"
	"vault_bot/pkg/logger"
)

// NewTelegram returns nil when no bot token or chat is configured.
func NewTelegram(cfg *config.Config, eng *engine.Engine, store vaultsvc.Store, feed *derivsvc.Client) (*service.Telegram, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		logger.Info("telegram disabled: token or chat id not set")
		return nil, nil
	}
	return service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, eng, store, feed)
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewTelegram,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, effects *enginesvc.Effects) {
				if t == nil {
					return
				}
				effects.Subscribe(t)

				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Start(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
