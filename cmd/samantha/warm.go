package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"samantha/pkg/agenda"
	"samantha/pkg/config"
	"samantha/pkg/cron"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Refresh the agenda and movie caches once and exit",
	Long: `Fetch the agenda and movie sources once to verify credentials and
connectivity. The serve command warms the same caches nightly.`,
	Run: runWarm,
}

func runWarm(cmd *cobra.Command, args []string) {
	applyConfigFlag()

	app := fx.New(
		config.Module,
		logger.Module,
		agenda.Module,
		movie.Module,
		cron.Module,

		fx.Invoke(func(m *cron.Manager, shutdowner fx.Shutdowner) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				m.WarmCaches(ctx)
				_ = shutdowner.Shutdown()
			}()
		}),
	)

	app.Run()
}
