package astparse

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/weftcode/astindex/internal/asterrors"
	"github.com/weftcode/astindex/internal/astschema"
)

// FileInput is one file queued for parsing.
type FileInput struct {
	Path     string
	Language string
	Content  []byte
}

// Orchestrator runs ParseFile over many files with bounded concurrency,
// isolating per-file failures into BatchResult.Errors rather than
// aborting the batch.
type Orchestrator struct {
	registry   *astschema.Registry
	classifier *astschema.Classifier
}

// NewOrchestrator builds an Orchestrator. Each call to Run opens its own
// Parser (and therefore its own tree-sitter parser instance per worker)
// so concurrent files never share a *sitter.Parser.
func NewOrchestrator(registry *astschema.Registry, classifier *astschema.Classifier) *Orchestrator {
	return &Orchestrator{registry: registry, classifier: classifier}
}

// Run parses every input file, continuing past individual failures.
func (o *Orchestrator) Run(ctx context.Context, files []FileInput, opts BatchOptions) BatchResult {
	if len(files) == 0 {
		return BatchResult{}
	}

	results := make([]FileResult, len(files))
	ok := make([]bool, len(files))

	var parserPool sync.Pool
	parserPool.New = func() any {
		return NewParser(o.registry, o.classifier)
	}

	tasks := make([]asterrors.Task, len(files))
	for i, f := range files {
		i, f := i, f
		tasks[i] = func(ctx context.Context) error {
			p := parserPool.Get().(*Parser)
			defer parserPool.Put(p)

			res, err := p.ParseFile(ctx, f.Path, f.Language, f.Content)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			results[i] = res
			ok[i] = true
			return nil
		}
	}

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	taskErrs := asterrors.ExecuteWithErrorCollection(ctx, tasks, asterrors.CollectionOptions{
		ContinueOnError: true,
		MaxConcurrency:  limit,
	})

	var batch BatchResult
	for i := range files {
		if ok[i] {
			batch.Files = append(batch.Files, results[i])
		}
	}
	for _, te := range taskErrs {
		path := "?"
		if te.Index >= 0 && te.Index < len(files) {
			path = files[te.Index].Path
		}
		batch.Errors = append(batch.Errors, ParseError{Path: path, Err: te.Err.Error()})
	}
	return batch
}
