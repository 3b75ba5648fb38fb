package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/client-geomap/app/config"
	"github.com/client-geomap/app/container"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "geomap",
		Short: "client address resolution and coordinate cache",
		Long: `
geomap loads the client list from a spreadsheet, resolves the addresses that
lack coordinates and keeps the results in the coordinate cache shared with the
API server.
`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config/app.yaml or $CONFIG_FILE)")

	root.AddCommand(
		newNormalizeCmd(),
		newResolveCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

// withContainer loads config, builds the components and closes them after fn
func withContainer(ctx context.Context, opts *options, fn func(*container.Container) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	app, err := container.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
