package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/ribbonapp/ribbon-core/internal/app"
	"github.com/ribbonapp/ribbon-core/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getStorageCommands()...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getRecipientCommands()...)
	cmds = append(cmds, getSessionCommands()...)
	return cmds
}

// withContainer loads and validates the configuration, runs fn with a fresh
// container and shuts the container down afterwards.
func withContainer(ctx context.Context, fn func(container *app.Container) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	container := app.NewContainer(cfg)
	defer func() {
		if err := container.Shutdown(ctx); err != nil {
			container.Logger().Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	return fn(container)
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func forceFlag(usage string) cli.Flag {
	return &cli.BoolFlag{
		Name:  "force",
		Value: false,
		Usage: usage,
	}
}
