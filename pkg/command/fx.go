package command

import (
	"go.uber.org/fx"

	"samantha/pkg/agenda"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
	"samantha/pkg/storage"
	"samantha/pkg/usage"
)

// Module provides the dispatcher for fx dependency injection.
var Module = fx.Module("command",
	fx.Provide(ProvideDispatcher),
)

func ProvideDispatcher(store *storage.Store, tracker *usage.Tracker, ag *agenda.Composer, movies *movie.Composer, log *logger.Logger) *Dispatcher {
	return NewDispatcher(store, tracker, ag, movies, log)
}
