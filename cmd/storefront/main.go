// Command storefront runs the storefront BFF and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/guloona/storefront-bff-go/internal/config"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
	}

	app := &cli.App{
		Name:  "storefront",
		Usage: "Guloona storefront backend-for-frontend",
		Commands: []*cli.Command{
			serveCommand(),
			profileCommand(),
			devTokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every command shares.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, observability.NewLogger(cfg.LogLevel), nil
}
