package asterrors

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work executed by ExecuteWithErrorCollection. It
// receives only the run's context; it is not passed its index.
type Task func(ctx context.Context) error

// CollectionOptions configures ExecuteWithErrorCollection.
type CollectionOptions struct {
	// ContinueOnError keeps running remaining tasks after a failure. When
	// false, the first error cancels all other in-flight and queued tasks.
	ContinueOnError bool

	// MaxConcurrency bounds how many tasks run at once. Zero means
	// unbounded (errgroup's default).
	MaxConcurrency int
}

// TaskError pairs a task's index with the error it returned.
type TaskError struct {
	Index int
	Err   error
}

// ExecuteWithErrorCollection runs tasks with bounded concurrency. When
// ContinueOnError is true every task runs regardless of earlier failures
// and all errors are returned; otherwise the first error cancels the
// group and is returned alone.
func ExecuteWithErrorCollection(ctx context.Context, tasks []Task, opts CollectionOptions) []TaskError {
	if len(tasks) == 0 {
		return nil
	}

	if !opts.ContinueOnError {
		g, gctx := errgroup.WithContext(ctx)
		if opts.MaxConcurrency > 0 {
			g.SetLimit(opts.MaxConcurrency)
		}
		for i, task := range tasks {
			i, task := i, task
			g.Go(func() error {
				if err := task(gctx); err != nil {
					return &indexedErr{index: i, err: err}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if ie, ok := err.(*indexedErr); ok {
				return []TaskError{{Index: ie.index, Err: ie.err}}
			}
			return []TaskError{{Index: -1, Err: err}}
		}
		return nil
	}

	var (
		errs  []TaskError
		errCh = make(chan TaskError, len(tasks))
	)
	g, gctx := errgroup.WithContext(context.Background())
	if opts.MaxConcurrency > 0 {
		g.SetLimit(opts.MaxConcurrency)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := task(gctx); err != nil {
				errCh <- TaskError{Index: i, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(errCh)
	for te := range errCh {
		errs = append(errs, te)
	}
	return errs
}

// indexedErr carries which task index produced an error through errgroup.
type indexedErr struct {
	index int
	err   error
}

func (e *indexedErr) Error() string { return e.err.Error() }
func (e *indexedErr) Unwrap() error { return e.err }
