package cron

import (
	"context"
	"time"

	"go.uber.org/fx"

	"samantha/pkg/agenda"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
)

// Module is the fx module for the cache warm-up scheduler.
var Module = fx.Module("cron",
	fx.Provide(NewManager),
	fx.Invoke(func(*Manager) {}),
)

// NewManager creates the warm-up manager bound to the fx lifecycle.
func NewManager(
	lc fx.Lifecycle,
	log *logger.Logger,
	agendas *agenda.Composer,
	movies *movie.Composer,
	loc *time.Location,
) *Manager {
	manager := New(log, agendas, movies, loc)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start()
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop()
		},
	})

	return manager
}
