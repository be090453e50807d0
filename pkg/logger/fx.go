package logger

import (
	"context"

	"go.uber.org/fx"

	"samantha/pkg/config"
)

// Module provides logger for fx dependency injection.
var Module = fx.Module("logger",
	fx.Provide(ProvideLogger),
)

// ProvideLogger builds the logger from the application config.
func ProvideLogger(cfg *config.Config, lc fx.Lifecycle) (*Logger, error) {
	logCfg := DefaultConfig()
	logCfg.Level = Level(cfg.Log.Level)
	logCfg.OutputPath = cfg.Log.OutputPath
	logCfg.Development = cfg.Log.Development

	log, err := New(logCfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync on stdout fails on some platforms; nothing actionable.
			_ = log.Sync()
			return nil
		},
	})

	return log, nil
}
