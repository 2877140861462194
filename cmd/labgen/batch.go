package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-labgen/internal/app"
	"github.com/yungbote/neurobridge-labgen/internal/platform/shutdown"
)

func newBatchCmd(f *runFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate labs for every concept in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				cfg.Pipeline.Limit = limit
			}
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			return withApp(ctx, cfg, func(a *app.App) error {
				s, err := a.RunBatch(ctx, cfg.Generation.Personalization)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "total: %d  successful: %d  failed: %d\n", s.TotalRequested, s.SuccessfulCount, s.FailedCount)
				if s.Canceled {
					fmt.Fprintf(out, "canceled after %d of %d concepts\n", s.TotalRequested, s.CatalogSize)
				}
				fmt.Fprintf(out, "output: %s\n", cfg.Output.Dir)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most N concepts (0 = all)")
	return cmd
}
