package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/ribbonapp/ribbon-core/cmd/app/commands"
	"github.com/ribbonapp/ribbon-core/internal/app"
)

func getStorageCommands() []*cli.Command {
	storageAction := func(
		run func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error,
	) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			return withContainer(ctx, func(container *app.Container) error {
				storage, err := container.StorageService()
				if err != nil {
					return err
				}
				return run(ctx, cmd, container, storage)
			})
		}
	}

	return []*cli.Command{
		{
			Name:  "storage",
			Usage: "Inspect and modify the encrypted key-value storage",
			Commands: []*cli.Command{
				{
					Name:  "init",
					Usage: "Initialize the storage and run pending migrations",
					Action: storageAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error {
						return commands.RunStorageInit(ctx, storage, container.Logger(), commands.DefaultIO().Writer)
					}),
				},
				{
					Name:      "get",
					Usage:     "Print the JSON value stored under a key",
					ArgsUsage: "<key>",
					Action: storageAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error {
						return commands.RunStorageGet(ctx, storage, commands.DefaultIO().Writer, cmd.Args().Get(0))
					}),
				},
				{
					Name:      "set",
					Usage:     "Store a JSON value under a key",
					ArgsUsage: "<key> <json>",
					Action: storageAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error {
						return commands.RunStorageSet(ctx, storage, container.Logger(), cmd.Args().Get(0), cmd.Args().Get(1))
					}),
				},
				{
					Name:      "remove",
					Usage:     "Remove a key",
					ArgsUsage: "<key>",
					Action: storageAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error {
						return commands.RunStorageRemove(ctx, storage, container.Logger(), cmd.Args().Get(0))
					}),
				},
				{
					Name:  "keys",
					Usage: "List the stored keys",
					Flags: []cli.Flag{formatFlag()},
					Action: storageAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error {
						return commands.RunStorageKeys(ctx, storage, commands.DefaultIO().Writer, cmd.String("format"))
					}),
				},
				{
					Name:  "clear",
					Usage: "Remove every stored key",
					Flags: []cli.Flag{forceFlag("Confirm removal of all stored data")},
					Action: storageAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, storage commands.StorageOperations) error {
						return commands.RunStorageClear(ctx, storage, container.Logger(), cmd.Bool("force"))
					}),
				},
			},
		},
	}
}
