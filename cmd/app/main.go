// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/flavortown/credvault/cmd/app/commands"
	"github.com/flavortown/credvault/internal/app"
	"github.com/flavortown/credvault/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "credvault",
		Usage:   "Per-user credential vault for the chat bot",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the vault API and metrics servers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "purge-user",
				Usage: "Remove every stored credential for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user-id",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "Identifier of the user to purge",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					useCase, err := container.VaultUseCase()
					if err != nil {
						return err
					}

					return commands.RunPurgeUser(
						ctx,
						useCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("user-id"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
