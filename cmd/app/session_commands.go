package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ribbonapp/ribbon-core/cmd/app/commands"
	"github.com/ribbonapp/ribbon-core/internal/app"
)

func getSessionCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "session",
			Usage: "Sign in to the remote API and manage the stored session",
			Commands: []*cli.Command{
				{
					Name:  "sign-in",
					Usage: "Authenticate and store the session",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     "email",
							Aliases:  []string{"e"},
							Required: true,
							Usage:    "Account email",
						},
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withContainer(ctx, func(container *app.Container) error {
							useCase, err := container.SessionUseCase()
							if err != nil {
								return err
							}
							return commands.RunSignIn(
								ctx,
								useCase,
								container.Logger(),
								commands.DefaultIO(),
								cmd.String("email"),
								os.Getenv("RIBBON_PASSWORD"),
							)
						})
					},
				},
				{
					Name:  "whoami",
					Usage: "Print the signed-in user",
					Flags: []cli.Flag{formatFlag()},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withContainer(ctx, func(container *app.Container) error {
							useCase, err := container.SessionUseCase()
							if err != nil {
								return err
							}
							return commands.RunWhoAmI(ctx, useCase, commands.DefaultIO().Writer, cmd.String("format"))
						})
					},
				},
				{
					Name:  "sign-out",
					Usage: "Remove the stored session",
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withContainer(ctx, func(container *app.Container) error {
							useCase, err := container.SessionUseCase()
							if err != nil {
								return err
							}
							return commands.RunSignOut(ctx, useCase, container.Logger())
						})
					},
				},
			},
		},
	}
}
