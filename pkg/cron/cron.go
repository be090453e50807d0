// Package cron schedules the nightly cache warm-up. Rebuilding the
// agenda and movie caches after midnight means the first requests of
// the day reply from fresh caches instead of waiting on Google
// Calendar, TMDB, and the cinema sites.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"samantha/pkg/agenda"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
)

const (
	// warmSchedule runs at midnight in the organizational timezone,
	// right after the agenda date labels roll over.
	warmSchedule = "0 0 * * *"

	warmTimeout = 5 * time.Minute

	// warmWindowDays matches the default agenda window so the warmed
	// entries are the ones a bare ?agenda hits.
	warmWindowDays = 7
)

// Manager runs the scheduled warm-up.
type Manager struct {
	log     *logger.Logger
	agendas *agenda.Composer
	movies  *movie.Composer
	loc     *time.Location

	scheduler *cron.Cron

	// now is overridable in tests.
	now func() time.Time
}

// New creates a manager scheduling in loc.
func New(log *logger.Logger, agendas *agenda.Composer, movies *movie.Composer, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		log:       log,
		agendas:   agendas,
		movies:    movies,
		loc:       loc,
		scheduler: cron.New(cron.WithLocation(loc)),
		now:       time.Now,
	}
}

// Start registers the warm-up job and starts the scheduler.
func (m *Manager) Start() error {
	m.log.Info("Starting cache warm-up scheduler",
		zap.String("schedule", warmSchedule),
		zap.String("timezone", m.loc.String()))

	if _, err := m.scheduler.AddFunc(warmSchedule, m.runWarmUp); err != nil {
		return err
	}
	m.scheduler.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (m *Manager) Stop() error {
	m.log.Info("Stopping cache warm-up scheduler")
	ctx := m.scheduler.Stop()
	<-ctx.Done()
	return nil
}

func (m *Manager) runWarmUp() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()
	m.WarmCaches(ctx)
}

// WarmCaches refreshes every composer cache. The composers log their
// own upstream failures and serve fallbacks, so a broken source shows
// up in the logs without aborting the rest of the warm-up.
func (m *Manager) WarmCaches(ctx context.Context) {
	start := m.now()

	m.agendas.Basic(ctx, warmWindowDays)
	m.agendas.Combined(ctx, warmWindowDays)

	m.movies.NowShowing(ctx)
	m.movies.Upcoming(ctx, movie.ParseDiscoverParams(nil, m.now().In(m.loc)))

	m.log.Info("Cache warm-up finished",
		zap.Duration("elapsed", m.now().Sub(start)))
}
