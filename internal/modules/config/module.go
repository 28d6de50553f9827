package config

import "go.uber.org/fx"

// Module supplies a configuration already loaded by main, so logging and
// tracing can be set up before the graph is built.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}
