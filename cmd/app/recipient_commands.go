package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/ribbonapp/ribbon-core/cmd/app/commands"
	"github.com/ribbonapp/ribbon-core/internal/app"
	recipientDomain "github.com/ribbonapp/ribbon-core/internal/recipient/domain"
	recipientUsecase "github.com/ribbonapp/ribbon-core/internal/recipient/usecase"
)

func getRecipientCommands() []*cli.Command {
	recipientAction := func(
		run func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error,
	) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			return withContainer(ctx, func(container *app.Container) error {
				useCase, err := container.RecipientUseCase()
				if err != nil {
					return err
				}
				return run(ctx, cmd, container, useCase)
			})
		}
	}

	recipientFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Recipient name",
		},
		&cli.StringFlag{
			Name:    "relationship",
			Aliases: []string{"r"},
			Usage:   "Relationship to the recipient (e.g., sister, friend)",
		},
		&cli.StringFlag{
			Name:    "birthday",
			Aliases: []string{"b"},
			Usage:   "Birthday in YYYY-MM-DD format",
		},
		&cli.StringSliceFlag{
			Name:    "interest",
			Aliases: []string{"i"},
			Usage:   "Interest (repeatable)",
		},
		&cli.StringFlag{
			Name:  "notes",
			Usage: "Free-form notes",
		},
		&cli.BoolFlag{
			Name:  "activate",
			Value: false,
			Usage: "Make the recipient active",
		},
	}

	recipientFromFlags := func(cmd *cli.Command, id string) recipientDomain.Recipient {
		return recipientDomain.Recipient{
			ID:           id,
			Name:         cmd.String("name"),
			Relationship: cmd.String("relationship"),
			Birthday:     cmd.String("birthday"),
			Interests:    cmd.StringSlice("interest"),
			Notes:        cmd.String("notes"),
		}
	}

	return []*cli.Command{
		{
			Name:  "recipients",
			Usage: "Manage gift recipients",
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List recipients",
					Flags: []cli.Flag{formatFlag()},
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunListRecipients(ctx, useCase, commands.DefaultIO().Writer, cmd.String("format"))
					}),
				},
				{
					Name:  "add",
					Usage: "Add a recipient",
					Flags: recipientFlags,
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunSaveRecipient(
							ctx,
							useCase,
							container.Logger(),
							commands.DefaultIO().Writer,
							recipientFromFlags(cmd, ""),
							cmd.Bool("activate"),
						)
					}),
				},
				{
					Name:      "update",
					Usage:     "Replace a recipient",
					ArgsUsage: "<id>",
					Flags:     recipientFlags,
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunSaveRecipient(
							ctx,
							useCase,
							container.Logger(),
							commands.DefaultIO().Writer,
							recipientFromFlags(cmd, cmd.Args().Get(0)),
							cmd.Bool("activate"),
						)
					}),
				},
				{
					Name:      "remove",
					Usage:     "Remove a recipient",
					ArgsUsage: "<id>",
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunRemoveRecipient(ctx, useCase, container.Logger(), cmd.Args().Get(0))
					}),
				},
				{
					Name:      "activate",
					Usage:     "Make a recipient active",
					ArgsUsage: "<id>",
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunActivateRecipient(ctx, useCase, container.Logger(), cmd.Args().Get(0))
					}),
				},
				{
					Name:  "clear",
					Usage: "Back up and remove every recipient",
					Flags: []cli.Flag{forceFlag("Confirm removal of all recipients")},
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunClearRecipients(ctx, useCase, commands.DefaultIO().Writer, cmd.Bool("force"))
					}),
				},
				{
					Name:  "restore",
					Usage: "Restore the recipients removed by the last clear",
					Action: recipientAction(func(ctx context.Context, cmd *cli.Command, container *app.Container, useCase recipientUsecase.RecipientUseCase) error {
						return commands.RunRestoreRecipients(ctx, useCase, commands.DefaultIO().Writer)
					}),
				},
			},
		},
	}
}
