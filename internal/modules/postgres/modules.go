package postgres

import (
	"context"
	"fmt"

	"vault_bot/internal/modules/config"
	"vault_bot/pkg/db"
	"vault_bot/pkg/logger"

	"go.uber.org/fx"
)

// Module provides *db.PgTxManager. Without a DSN it provides nil and the
// vault falls back to its in-memory store.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					logger.Warn("db_dsn is empty, persistence is in-memory only")
					return nil, nil
				}

				ctx := context.Background()
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, fmt.Errorf("ping postgres: %w", err)
				}

				tm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.StopHook(tm.Close))
				return tm, nil
			},
		),
	)
}
