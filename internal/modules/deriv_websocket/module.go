package deriv_websocket

import (
	"context"

	"go.uber.org/fx"

	"vault_bot/internal/engine"
	"vault_bot/internal/modules/config"
	"vault_bot/internal/modules/deriv_websocket/service"
)

func NewClient(cfg *config.Config, eng *engine.Engine) *service.Client {
	return service.NewClient(service.Config{
		URL:                  cfg.DerivURL(),
		Token:                cfg.Deriv.Token,
		ReconnectBase:        cfg.Deriv.ReconnectBase,
		ReconnectMax:         cfg.Deriv.ReconnectMax,
		ReconnectMaxAttempts: cfg.Deriv.ReconnectMaxAttempts,
	}, eng)
}

// Module starts the Deriv feed; ticks and order outcomes flow into the engine.
func Module() fx.Option {
	return fx.Module("deriv_websocket",
		fx.Provide(NewClient),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						c.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
						return nil
					case <-stopCtx.Done():
						return stopCtx.Err()
					}
				},
			})
		}),
	)
}
