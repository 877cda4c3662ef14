package annotate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/weftcode/astindex/internal/astparse"
	"github.com/weftcode/astindex/internal/asterrors"
)

// Progress is a snapshot of an annotation run emitted to Reporter at
// most once per second per file.
type Progress struct {
	FilePath       string
	NodesAnnotated int
	NodesTotal     int
	ElapsedSeconds float64
}

// Reporter receives Progress updates. Implementations must be safe for
// concurrent use.
type Reporter func(Progress)

// RunOptions configures Runner.Run.
type RunOptions struct {
	Mode           Mode
	MaxConcurrency int
	DryRun         bool
	Reporter       Reporter
}

// Runner drives the Generator across a batch of parsed files, honoring
// the force/changed/missing processing modes and writing annotations
// atomically unless DryRun is set.
type Runner struct {
	gen       *Generator
	annotsDir string
}

// NewRunner builds a Runner whose annotations are written under
// annotsDir.
func NewRunner(annotsDir string) *Runner {
	return &Runner{gen: NewGenerator(), annotsDir: annotsDir}
}

// FileJob is one file's parse result queued for annotation.
type FileJob struct {
	Result  astparse.FileResult
	Imports []string
	Exports []string
}

// RunResult is the per-file outcome of an annotation batch.
type RunResult struct {
	FilePath    string
	Skipped     bool
	Annotations []Annotation
	Err         error
}

// Run processes every job, skipping files the mode says are already
// annotated, and reports progress at most once per second per file.
func (r *Runner) Run(ctx context.Context, jobs []FileJob, opts RunOptions) []RunResult {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]RunResult, len(jobs))

	tasks := make([]asterrors.Task, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		tasks[i] = func(ctx context.Context) error {
			results[i] = r.runOne(ctx, job, opts)
			return nil
		}
	}

	asterrors.ExecuteWithErrorCollection(ctx, tasks, asterrors.CollectionOptions{
		ContinueOnError: true,
		MaxConcurrency:  opts.MaxConcurrency,
	})

	return results
}

func (r *Runner) runOne(ctx context.Context, job FileJob, opts RunOptions) RunResult {
	start := time.Now()
	res := job.Result

	if opts.Mode != ModeForce && !ShouldReprocess(opts.Mode, r.annotsDir, res.Nodes) {
		return RunResult{FilePath: res.Path, Skipped: true}
	}

	actx := AnnotationContext{
		FilePath:   res.Path,
		Language:   res.Language,
		AllNodes:   res.Nodes,
		Imports:    job.Imports,
		Exports:    job.Exports,
	}

	var (
		annotations = make([]Annotation, 0, len(res.Nodes))
		lastEmit    time.Time
	)

	for i, n := range res.Nodes {
		select {
		case <-ctx.Done():
			return RunResult{FilePath: res.Path, Annotations: annotations, Err: ctx.Err()}
		default:
		}

		a := r.gen.AnnotateNode(n, actx)
		if !opts.DryRun {
			if _, err := WriteAnnotation(r.annotsDir, a); err != nil {
				return RunResult{FilePath: res.Path, Annotations: annotations, Err: err}
			}
		}
		annotations = append(annotations, a)

		if opts.Reporter != nil && (lastEmit.IsZero() || time.Since(lastEmit) >= time.Second) {
			opts.Reporter(Progress{
				FilePath:       res.Path,
				NodesAnnotated: i + 1,
				NodesTotal:     len(res.Nodes),
				ElapsedSeconds: time.Since(start).Seconds(),
			})
			lastEmit = time.Now()
		}
	}

	return RunResult{FilePath: res.Path, Annotations: annotations}
}

// AnnotsPathFor is a convenience for callers that want the on-disk
// path an annotation would be written to without writing it.
func AnnotsPathFor(annotsDir, nodeID string) string {
	return filepath.Join(annotsDir, nodeID+".json")
}
