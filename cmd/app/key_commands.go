package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/cmd/app/commands"
	"github.com/allisson/fieldcrypt/internal/app"
	"github.com/allisson/fieldcrypt/internal/config"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-key",
			Usage: "Generate a field key and print its secret store entry",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Key-name (names, phone, email, academic, professional)",
				},
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Usage:   "Key ID recorded in the payload (default: <name>-YYYY-MM-DD)",
				},
				&cli.IntFlag{
					Name:  "version",
					Value: 1,
					Usage: "Key version recorded in the payload",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "Wrap the payload with this KMS key (base64key://, awskms://, gcpkms://, azurekeyvault://, hashivault://)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				var encrypter commands.PayloadEncrypter
				if uri := cmd.String("kms-key-uri"); uri != "" {
					keeper, err := keysService.OpenKeeper(ctx, uri)
					if err != nil {
						return err
					}
					defer func() { _ = keeper.Close() }()
					encrypter = keeper
				}

				return commands.RunGenerateKey(
					ctx,
					encrypter,
					container.Logger(),
					commands.DefaultIO().Writer,
					cfg.StoreConfig(),
					cmd.String("name"),
					cmd.String("id"),
					int(cmd.Int("version")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "validate-store",
			Usage: "Validate the secret store configuration without contacting it",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "region",
					Usage: "Region override",
				},
				&cli.StringFlag{
					Name:  "endpoint",
					Usage: "Endpoint override",
				},
				&cli.StringFlag{
					Name:  "secret-prefix",
					Usage: "Secret prefix override",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				var explicit *keysDomain.StoreConfig
				if cmd.IsSet("region") || cmd.IsSet("endpoint") || cmd.IsSet("secret-prefix") {
					explicit = &keysDomain.StoreConfig{
						Region:       cmd.String("region"),
						Endpoint:     cmd.String("endpoint"),
						SecretPrefix: cmd.String("secret-prefix"),
					}
				}

				return commands.RunValidateStore(
					container.Logger(),
					commands.DefaultIO().Writer,
					explicit,
					cfg.StoreConfig(),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "preload-keys",
			Usage: "Fetch every field key and report which loaded",
			Flags: []cli.Flag{
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyDirectory, err := container.KeyDirectory()
				if err != nil {
					return err
				}

				return commands.RunPreloadKeys(
					ctx,
					keyDirectory,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
