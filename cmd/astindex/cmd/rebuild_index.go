package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/vectorstore"
)

func newRebuildIndexCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "rebuild-index",
		Short: "Rebuild the HNSW graph from the vector metadata sidecar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			if outputDir == "" {
				if err := env.Store.Rebuild(ctx); err != nil {
					return err
				}
				stats := env.Store.GetStats()
				fmt.Fprintf(cmd.OutOrStdout(), "rebuilt index: %d vectors, status=%s\n", stats.VectorCount, stats.Status)
				return nil
			}

			// Rebuild into a fresh HNSW file alongside the existing
			// sidecar, leaving the live store untouched.
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			outCfg := vectorstore.DefaultConfig(env.Embedder.Dimensions(), env.Layout.VectorsDBPath(), filepath.Join(outputDir, "hnsw.index"))
			outStore, err := vectorstore.Open(outCfg, vectorstore.NewMetrics())
			if err != nil {
				return err
			}
			defer outStore.Shutdown()

			if err := outStore.Rebuild(ctx); err != nil {
				return err
			}

			stats := outStore.GetStats()
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt index at %s: %d vectors, status=%s\n", outputDir, stats.VectorCount, stats.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "write the rebuilt HNSW graph here instead of the live index")

	return cmd
}
