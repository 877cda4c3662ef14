package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/asterrors"
)

func newQueryCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query \"text\"",
		Short: "Return the top-K nearest nodes to a text query as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			if topK <= 0 {
				topK = 10
			}

			vector, err := env.Embedder.Embed(ctx, args[0])
			if err != nil {
				return err
			}

			results, err := env.Store.SearchSimilar(ctx, vector, topK, 0)
			if err != nil {
				return asterrors.Wrap(asterrors.KindVectorStore, "search", err)
			}

			type match struct {
				NodeID     string  `json:"nodeId"`
				Similarity float32 `json:"similarity"`
				FilePath   string  `json:"filePath"`
				LineNumber int     `json:"lineNumber"`
				Summary    string  `json:"summary"`
			}
			matches := make([]match, len(results))
			for i, r := range results {
				matches[i] = match{
					NodeID:     r.NodeID,
					Similarity: r.Similarity,
					FilePath:   r.Metadata.FilePath,
					LineNumber: r.Metadata.LineNumber,
					Summary:    r.Metadata.Summary,
				}
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(matches); err != nil {
				return fmt.Errorf("encode results: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top", 10, "number of matches to return")

	return cmd
}
