package linebot

import (
	"go.uber.org/fx"

	"samantha/pkg/command"
	"samantha/pkg/config"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
	"samantha/pkg/storage"
)

// Module provides the LINE channel for fx dependency injection.
var Module = fx.Module("linebot",
	fx.Provide(ProvideChannel),
)

func ProvideChannel(cfg *config.Config, dispatcher *command.Dispatcher, movies *movie.Composer, store *storage.Store, log *logger.Logger) (*Channel, error) {
	return New(cfg.Line, dispatcher, movies, store, log)
}
