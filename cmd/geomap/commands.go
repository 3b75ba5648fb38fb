package main

import (
	"fmt"
	"strings"

	"github.com/client-geomap/app/container"
	"github.com/client-geomap/internal/normalizer"
	"github.com/spf13/cobra"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <address>...",
		Short: "print the normalized form of each address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a, normalizer.Normalize(a))
			}
			return nil
		},
	}
}

func newResolveCmd(opts *options) *cobra.Command {
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "run one resolution cycle and print the final client list as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				url := strings.TrimSpace(sourceURL)
				if url == "" && app.Resolution.SourceURL() == "" {
					return fmt.Errorf("no source: pass --source or set source.url")
				}
				if err := app.Resolution.Load(cmd.Context(), url); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app.Resolution.Snapshot())
			})
		},
	}
	cmd.Flags().StringVarP(&sourceURL, "source", "s", "", "spreadsheet URL, overrides source.url")
	return cmd
}

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "inspect or clear the coordinate cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "print cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				stats, err := app.Cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "remove every cached coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(app *container.Container) error {
				if err := app.Cache.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	})

	return cmd
}
