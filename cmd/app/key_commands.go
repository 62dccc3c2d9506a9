package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/ribbonapp/ribbon-core/cmd/app/commands"
	"github.com/ribbonapp/ribbon-core/internal/app"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "key",
			Usage: "Manage the per-install encryption key",
			Commands: []*cli.Command{
				{
					Name:  "rotate",
					Usage: "Generate a new key and re-encrypt every sensitive value",
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withContainer(ctx, func(container *app.Container) error {
							storage, err := container.StorageService()
							if err != nil {
								return err
							}
							return commands.RunRotateKey(ctx, storage, container.Logger())
						})
					},
				},
				{
					Name:  "delete",
					Usage: "Delete the key, making encrypted values unreadable",
					Flags: []cli.Flag{forceFlag("Confirm deletion of the encryption key")},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withContainer(ctx, func(container *app.Container) error {
							keyManager, err := container.KeyManager()
							if err != nil {
								return err
							}
							return commands.RunDeleteKey(ctx, keyManager, container.Logger(), cmd.Bool("force"))
						})
					},
				},
			},
		},
	}
}
