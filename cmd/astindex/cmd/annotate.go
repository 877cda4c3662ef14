package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/annotate"
	"github.com/weftcode/astindex/internal/pipeline"
)

func newAnnotateCmd() *cobra.Command {
	var (
		changed        bool
		force          bool
		batchSize      int
		maxConcurrency int
		dryRun         bool
		outputStats    bool
	)

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Run parse and annotation over the selected files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			selOpts, err := buildSelectOptions(env.Root, changed, false, "", "", nil)
			if err != nil {
				return err
			}

			mode := annotate.ModeMissing
			if changed {
				mode = annotate.ModeChanged
			}
			if force {
				mode = annotate.ModeForce
			}

			result, runErr := runPipeline(cmd, env, pipeline.RunOptions{
				Select:         selOpts,
				Force:          force,
				BatchSize:      batchSize,
				MaxConcurrency: maxConcurrency,
				DryRun:         dryRun,
				AnnotateMode:   annotateModeName(mode),
			})
			if runErr != nil {
				return runErr
			}

			if outputStats {
				fmt.Fprintf(cmd.OutOrStdout(), "annotated %d files, %d errors\n", len(result.Files), result.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&changed, "changed", false, "only reprocess files whose leading nodes changed")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess every node regardless of existing annotations")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override the default batch size")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "override the default worker concurrency")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run without writing any output")
	cmd.Flags().BoolVar(&outputStats, "output-stats", false, "print summary statistics")

	return cmd
}
