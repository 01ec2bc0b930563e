package main

import (
	"fmt"

	"github.com/guloona/storefront-bff-go/internal/domain"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "maintain stored user profiles",
		Subcommands: []*cli.Command{
			{
				Name:  "delete",
				Usage: "delete a user's profile and its local copy",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user ID", Required: true},
				},
				Action: profileDelete,
			},
		},
	}
}

func profileDelete(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	b, err := openBackends(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	userID := c.String("user")
	removed, err := b.profiles.Delete(c.Context, userID)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	if err := b.local.Delete(c.Context, domain.FallbackKey(userID)); err != nil {
		logger.Warn("local profile copy not removed", zap.String("user_id", userID), zap.Error(err))
	}

	if !removed {
		return cli.Exit(fmt.Sprintf("profile not found: %s", userID), 1)
	}
	fmt.Fprintf(c.App.Writer, "deleted profile %s\n", userID)
	return nil
}
