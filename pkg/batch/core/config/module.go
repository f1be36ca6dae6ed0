package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig so components can depend on it alone.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Coffee.System.Logging
}

// Module provides *Config and its derived settings. The EmbeddedConfig must be supplied by the caller.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
