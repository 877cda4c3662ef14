package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/astoutput"
	"github.com/weftcode/astindex/internal/pipeline"
)

// runPipeline executes one coordinator batch against env, rendering
// progress to cmd's output stream and printing a final summary,
// grounded on the teacher's index.go (progress channel consumed on a
// goroutine, renderer torn down after Run returns).
func runPipeline(cmd *cobra.Command, env *environment, opts pipeline.RunOptions) (pipeline.Result, error) {
	renderCfg := astoutput.NewConfig(cmd.OutOrStdout())
	var renderer astoutput.Renderer
	if astoutput.ShouldUsePlain(renderCfg) {
		renderer = astoutput.NewRenderer(renderCfg)
	} else {
		renderer = newBarRenderer(cmd.OutOrStdout())
	}
	if err := renderer.Start(); err != nil {
		return pipeline.Result{}, err
	}

	progressCh := make(chan pipeline.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progressCh {
			renderer.Report(p)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := env.Coordinator.Run(ctx, opts, progressCh)
	close(progressCh)
	<-done

	errCount := 0
	for _, f := range result.Files {
		if f.Err != nil {
			errCount++
			renderer.ReportError(astoutput.ErrorEvent{Path: f.Path, Err: f.Err})
		}
	}

	skipped := 0
	for _, f := range result.Files {
		if f.Skipped {
			skipped++
		}
	}

	renderer.Complete(astoutput.Summary{
		FilesProcessed: len(result.Files) - skipped,
		FilesSkipped:   skipped,
		NodesIndexed:   result.TotalNodes,
		Errors:         errCount,
		Duration:       result.Duration,
		EmbedderModel:  env.Embedder.ModelName(),
	})
	_ = renderer.Stop()

	return result, err
}
