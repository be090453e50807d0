package config

import (
	"time"

	"go.uber.org/fx"
)

// Module provides configuration for fx dependency injection.
var Module = fx.Module("config",
	fx.Provide(NewLoader),
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideLocation),
)

// ProvideConfig loads the configuration via the loader.
func ProvideConfig(loader *Loader) (*Config, error) {
	cfg, err := loader.Load("")
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideLocation resolves the organizational timezone all schedule
// rendering happens in.
func ProvideLocation(cfg *Config) (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}
