package agenda

import (
	"context"
	"time"

	"go.uber.org/fx"

	"samantha/pkg/config"
	"samantha/pkg/logger"
)

// Module provides the agenda composer for fx dependency injection.
var Module = fx.Module("agenda",
	fx.Provide(ProvideLister),
	fx.Provide(ProvideComposer),
)

// ProvideLister builds the Google Calendar client.
func ProvideLister(cfg *config.Config, loc *time.Location) (EventsLister, error) {
	return NewGoogleCalendar(context.Background(), cfg.Calendar, loc)
}

// ProvideComposer wires the composer to the configured calendars.
func ProvideComposer(lister EventsLister, log *logger.Logger, cfg *config.Config, loc *time.Location) *Composer {
	return NewComposer(lister, log, loc, cfg.Calendar.BasicCalendarID, cfg.Calendar.StaffCalendarID)
}
