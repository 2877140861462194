package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-labgen/internal/app"
	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/output"
	"github.com/yungbote/neurobridge-labgen/internal/platform/shutdown"
)

func newSingleCmd(f *runFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "single",
		Short: "Generate the lab for one concept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return labs.Configurationf("--concept is required")
			}
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			return withApp(ctx, cfg, func(a *app.App) error {
				res, err := a.RunSingle(ctx, name, cfg.Generation.Personalization)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				status := "generated"
				if !res.Success {
					status = fmt.Sprintf("failed (%s)", res.ErrorKind)
				}
				fmt.Fprintf(out, "%s: %s [%s]\n", res.Concept.Name, status, res.ModelUsed)
				if res.ErrorKind != labs.ErrorKindFilesystem {
					o := output.NewOrganizer(a.Log, cfg.Output.Dir, cfg.Output.SummaryFile)
					fmt.Fprintf(out, "saved to: %s\n", o.PathsFor(output.StorageKey(res.Concept.Name)).ConceptDir)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "concept", "", "concept name (case-insensitive)")
	return cmd
}
