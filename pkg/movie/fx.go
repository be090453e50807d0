package movie

import (
	"go.uber.org/fx"

	"samantha/pkg/config"
	"samantha/pkg/logger"
)

// Module provides the movie composer for fx dependency injection.
var Module = fx.Module("movie",
	fx.Provide(ProvideComposer),
)

// ProvideComposer wires the TMDB catalog and the three venue scrapers.
func ProvideComposer(cfg *config.Config, log *logger.Logger) *Composer {
	catalog := NewTMDBClient(cfg.Movies.TMDBAPIKey)
	venues := []VenueLister{
		NewXXILister("Ciwalk XXI", cfg.Movies.XXICiwalkURL),
		NewCGVLister("CGV BEC", cfg.Movies.CGVBECURL),
		NewCGVLister("CGV PVJ", cfg.Movies.CGVPVJURL),
	}
	return NewComposer(catalog, venues, log)
}
