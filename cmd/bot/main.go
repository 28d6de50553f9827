package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"vault_bot/internal/modules/config"
	"vault_bot/internal/modules/deriv_websocket"
	"vault_bot/internal/modules/engine"
	"vault_bot/internal/modules/health"
	"vault_bot/internal/modules/postgres"
	telegram "vault_bot/internal/modules/telegram_bot"
	"vault_bot/internal/modules/vault"
	"vault_bot/pkg/logger"
	"vault_bot/pkg/tracing"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger.SetServiceName(cfg.Service.Name)
	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	tracing.SetServiceName(cfg.Service.Name)
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		logger.Fatal("init tracer: %v", err)
	}
	defer closeTracer()

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.L()}
		}),
		config.Module(cfg),
		postgres.Module(),
		vault.Module(),
		health.Module(),
		engine.Module(),
		deriv_websocket.Module(),
		telegram.Module(),
	)
	// Run blocks until SIGINT/SIGTERM and then stops the lifecycle hooks in reverse order.
	app.Run()
}
