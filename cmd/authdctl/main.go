// Command authdctl is the administrative CLI surface of spec §6: three
// subcommands (setup, client, purge) over the same Credential Store the
// server uses, grounded on khanghh-cas-go/main.go's urfave/cli/v2 shape.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/lumenauth/authd/internal/config"
	"github.com/lumenauth/authd/internal/credential"
	"github.com/lumenauth/authd/internal/database"
)

var app *cli.App

func init() {
	app = cli.NewApp()
	app.Name = "authdctl"
	app.Usage = "authd administrative CLI"
	app.Commands = []*cli.Command{
		setupCommand,
		clientCommand,
		purgeCommand,
	}
}

var setupCommand = &cli.Command{
	Name:  "setup",
	Usage: "create tables, then create a default first-party PAT client and print its id",
	Action: func(ctx *cli.Context) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}

		clients := credential.NewClientStore(db)
		client, secret, err := clients.Create(context.Background(), credential.ClientInput{
			Name:       "default personal access client",
			FirstParty: true,
		})
		if err != nil {
			return err
		}

		fmt.Printf("client_id: %s\n", client.ID)
		if secret != "" {
			fmt.Printf("client_secret: %s\n", secret)
		}
		fmt.Println("set OAUTH_PERSONAL_ACCESS_CLIENT to this client_id to enable /personal-tokens")
		return nil
	},
}

var clientCommand = &cli.Command{
	Name:  "client",
	Usage: "register a new OAuth client and print its id and secret",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringSliceFlag{Name: "redirect"},
		&cli.BoolFlag{Name: "public", Usage: "register a public (non-confidential) client"},
		&cli.BoolFlag{Name: "first-party", Usage: "exempt this client from the consent screen"},
		&cli.StringSliceFlag{Name: "credentials", Usage: "grant types this client may use"},
	},
	Action: func(ctx *cli.Context) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}

		confidential := !ctx.Bool("public")
		clients := credential.NewClientStore(db)
		client, secret, err := clients.Create(context.Background(), credential.ClientInput{
			Name:         ctx.String("name"),
			RedirectURIs: ctx.StringSlice("redirect"),
			GrantTypes:   ctx.StringSlice("credentials"),
			Confidential: &confidential,
			FirstParty:   ctx.Bool("first-party"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("client_id: %s\n", client.ID)
		if secret != "" {
			fmt.Printf("client_secret: %s\n", secret)
		}
		return nil
	},
}

var purgeCommand = &cli.Command{
	Name:  "purge",
	Usage: "prune expired/revoked tokens and consumed/expired authorization codes",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "days", Usage: "override OAUTH_PRUNE_REVOKED_AFTER_DAYS"},
	},
	Action: func(ctx *cli.Context) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}

		days := cfg.PruneRevokedAfterDays
		if ctx.IsSet("days") {
			days = ctx.Int("days")
		}

		tokens := credential.NewTokenStore(db)
		codes := credential.NewAuthCodeStore(db)

		tokenCount, err := tokens.Prune(context.Background(), days)
		if err != nil {
			return err
		}
		codeCount, err := codes.Prune(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("pruned %d tokens, %d authorization codes\n", tokenCount, codeCount)
		return nil
	},
}

func bootstrap() (*config.Config, *gorm.DB, error) {
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.InitDatabase(database.NewDatabaseConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
