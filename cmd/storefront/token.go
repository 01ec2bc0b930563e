package main

import (
	"fmt"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/auth"

	"github.com/urfave/cli/v2"
)

// devTokenCommand signs an access token with SUPABASE_JWT_SECRET, for
// driving a local server without the auth provider.
func devTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "dev-token",
		Usage: "print a signed access token for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "user ID (sub claim)", Required: true},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "first-name"},
			&cli.StringFlag{Name: "last-name"},
			&cli.DurationFlag{Name: "ttl", Value: time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			token, err := auth.IssueToken(cfg.SupabaseJWTSecret, domain.Identity{
				ID:    c.String("user"),
				Email: c.String("email"),
				Metadata: domain.UserMetadata{
					FirstName: c.String("first-name"),
					LastName:  c.String("last-name"),
				},
			}, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}
