package vault

import (
	"context"

	"go.uber.org/fx"

	"vault_bot/internal/engine"
	"vault_bot/internal/modules/vault/service"
	"vault_bot/internal/modules/vault/service/pg"
	"vault_bot/pkg/db"
	"vault_bot/pkg/logger"
)

func NewStore(tm *db.PgTxManager, cfg engine.Config) service.Store {
	if tm == nil {
		logger.Info("vault: using in-memory store")
		return service.NewMemory(cfg.Settings())
	}
	return pg.New(tm, cfg.Settings())
}

func NewWriter(lc fx.Lifecycle, store service.Store) *service.Writer {
	w := service.NewWriter(store, service.DefaultWriterQueue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				w.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			return nil
		},
	})
	return w
}

func Module() fx.Option {
	return fx.Module("vault",
		fx.Provide(
			NewStore,
			NewWriter,
		),
	)
}
