package storage

import (
	"context"

	"go.uber.org/fx"

	"samantha/pkg/config"
)

// Module provides the store for fx dependency injection.
var Module = fx.Module("storage",
	fx.Provide(ProvideStore),
)

// ProvideStore opens the sqlite database and closes it on shutdown.
func ProvideStore(cfg *config.Config, lc fx.Lifecycle) (*Store, error) {
	store, err := Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
