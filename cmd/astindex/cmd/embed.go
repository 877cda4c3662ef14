package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/pipeline"
)

func newEmbedCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "embed [files...]",
		Short: "Run parse, annotate, and embed over explicit files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			selOpts, err := buildSelectOptions(env.Root, false, false, "", "", args)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				selOpts.Mode = pipeline.SelectChanged
			}

			result, runErr := runPipeline(cmd, env, pipeline.RunOptions{
				Select: selOpts,
				Force:  force,
			})
			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "embedded %d nodes across %d files\n", result.TotalNodes, len(result.Files))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-embed even if annotations are unchanged")

	return cmd
}
