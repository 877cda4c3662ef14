package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/astoutput"
	"github.com/weftcode/astindex/internal/fswatch"
	"github.com/weftcode/astindex/internal/pipeline"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [globs...]",
		Short: "Watch the workspace and keep the index current as files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			watcher, err := fswatch.NewHybridWatcher(fswatch.Options{}.WithDefaults())
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx, env.Root); err != nil {
				return err
			}
			defer watcher.Stop()

			renderer := newWatchRenderer(cmd.OutOrStdout())
			if err := renderer.Start(); err != nil {
				return err
			}
			defer renderer.Stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", env.Root)

			for {
				select {
				case <-ctx.Done():
					return nil
				case batch, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					runWatchBatch(cmd, env, renderer, batch, env.Root)
				case werr, ok := <-watcher.Errors():
					if !ok {
						continue
					}
					renderer.ReportError(astoutput.ErrorEvent{Err: werr, IsWarn: true})
				}
			}
		},
	}

	return cmd
}

// runWatchBatch turns one coalesced batch of fswatch events into an
// explicit-path pipeline run, isolating a single batch's failure from
// the watch loop's lifetime.
func runWatchBatch(cmd *cobra.Command, env *environment, renderer astoutput.Renderer, events []fswatch.FileEvent, root string) {
	var paths []string
	for _, e := range events {
		if e.Operation == fswatch.OpDelete || e.IsDir {
			continue
		}
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			continue
		}
		paths = append(paths, rel)
	}
	if len(paths) == 0 {
		return
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

	result, err := env.Coordinator.Run(ctx, pipeline.RunOptions{
		Select: pipeline.SelectOptions{Mode: pipeline.SelectConfig, ConfigPaths: paths, RootPath: root},
	}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		renderer.ReportError(astoutput.ErrorEvent{Err: err})
		return
	}
	for _, f := range result.Files {
		if f.Err != nil {
			renderer.ReportError(astoutput.ErrorEvent{Path: f.Path, Err: f.Err})
		}
	}
}
