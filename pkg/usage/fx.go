package usage

import (
	"time"

	"go.uber.org/fx"

	"samantha/pkg/logger"
	"samantha/pkg/storage"
)

// Module provides the usage tracker for fx dependency injection.
var Module = fx.Module("usage",
	fx.Provide(ProvideTracker),
)

// ProvideTracker builds the tracker in the configured timezone.
func ProvideTracker(store *storage.Store, log *logger.Logger, loc *time.Location) *Tracker {
	return New(store, log, loc)
}
