package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/pipeline"
)

func newParseCmd() *cobra.Command {
	var (
		changed      bool
		staged       bool
		glob         string
		base         string
		force        bool
		batchSize    int
		dryRun       bool
		outputStats  bool
	)

	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Select files and run the parse stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			selOpts, err := buildSelectOptions(env.Root, changed, staged, glob, base, args)
			if err != nil {
				return err
			}

			result, runErr := runPipeline(cmd, env, pipeline.RunOptions{
				Select:    selOpts,
				Force:     force,
				BatchSize: batchSize,
				DryRun:    dryRun,
			})
			if runErr != nil {
				return runErr
			}

			if outputStats {
				fmt.Fprintf(cmd.OutOrStdout(), "parsed %d files, %d nodes, %d errors\n",
					len(result.Files), result.TotalNodes, result.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&changed, "changed", false, "select files changed since --base (default HEAD)")
	cmd.Flags().BoolVar(&staged, "staged", false, "select files staged for commit")
	cmd.Flags().StringVar(&glob, "glob", "", "select files matching a glob pattern")
	cmd.Flags().StringVar(&base, "base", "", "base ref for --changed (default HEAD)")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess files even if unchanged")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override the default batch size")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run without writing any output")
	cmd.Flags().BoolVar(&outputStats, "output-stats", false, "print summary statistics")

	return cmd
}
