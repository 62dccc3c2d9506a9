package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/ribbonapp/ribbon-core/cmd/app/commands"
	"github.com/ribbonapp/ribbon-core/internal/app"
	"github.com/ribbonapp/ribbon-core/internal/config"
)

const diagnosticsShutdownTimeout = 15 * time.Second

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "diagnostics",
			Usage: "Serve health, readiness, metrics and debug endpoints",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					logger := container.Logger()
					logger.Info("starting diagnostics", slog.String("version", version))

					if container.Config().LogLevel != "debug" {
						gin.SetMode(gin.ReleaseMode)
					}

					storage, err := container.StorageService()
					if err != nil {
						return err
					}
					server, err := container.DiagnosticsServer()
					if err != nil {
						return fmt.Errorf("failed to initialize diagnostics server: %w", err)
					}
					errorLogger, err := container.ErrorLogger()
					if err != nil {
						return err
					}

					return commands.RunDiagnostics(
						ctx,
						storage,
						server,
						errorLogger,
						logger,
						diagnosticsShutdownTimeout,
					)
				})
			},
		},
		{
			Name:  "migrate",
			Usage: "Create the kv_entries table for the SQL storage backends",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DatabaseDriver(), cfg.DBConnectionString)
			},
		},
	}
}
