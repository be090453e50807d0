package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"samantha/pkg/agenda"
	"samantha/pkg/command"
	"samantha/pkg/config"
	"samantha/pkg/cron"
	"samantha/pkg/linebot"
	"samantha/pkg/logger"
	"samantha/pkg/movie"
	"samantha/pkg/storage"
	"samantha/pkg/usage"
	"samantha/pkg/webui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and dashboard server",
	Long: `Run the LINE webhook and the admin dashboard on one listener.

Examples:
  # Run with the default config search paths
  samantha serve

  # Run with an explicit config file
  samantha serve -c /etc/samantha/config.json`,
	Run: runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	applyConfigFlag()

	app := fx.New(
		// Core modules
		config.Module,
		logger.Module,
		storage.Module,
		usage.Module,

		// Feature composers
		agenda.Module,
		movie.Module,
		command.Module,

		// Transport and dashboard
		linebot.Module,
		webui.Module,
		cron.Module,

		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.Info("Samantha started",
						zap.String("host", cfg.Server.Host),
						zap.Int("port", cfg.Server.Port))
					log.Info("Press Ctrl+C to stop")
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.Info("Samantha stopped")
					return nil
				},
			})
		}),
	)

	app.Run()
}

func applyConfigFlag() {
	if configPath != "" {
		os.Setenv(config.ConfigPathEnv, configPath)
	}
}
