package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/weftcode/astindex/internal/annotate"
	"github.com/weftcode/astindex/internal/asterrors"
	"github.com/weftcode/astindex/internal/astparse"
	"github.com/weftcode/astindex/internal/astschema"
	"github.com/weftcode/astindex/internal/diskscan"
	"github.com/weftcode/astindex/internal/indexstore"
	"github.com/weftcode/astindex/internal/vectorize"
	"github.com/weftcode/astindex/internal/vectorstore"
	"github.com/weftcode/astindex/internal/watchstate"
)

// embedBatchSize batches node text into embedder calls, matching the
// teacher's runner.go embeddingBatchSize.
const embedBatchSize = 32

// Dependencies wires a Coordinator to the concrete C3-C8 components it
// sequences. Every field is required.
type Dependencies struct {
	Layout     *indexstore.Layout
	Registry   *astschema.Registry
	Classifier *astschema.Classifier
	Embedder   vectorize.Embedder
	Store      vectorstore.Store
	Watch      *watchstate.Manager
}

// Coordinator sequences select -> parse -> annotate -> embed+index ->
// record for a batch of files, grounded on the teacher's
// internal/index.Coordinator (event dispatch, per-file isolate-and-
// continue) and internal/index.Runner (stage sequencing, dry-run
// support).
type Coordinator struct {
	deps   Dependencies
	parser *astparse.Orchestrator
	annot  *annotate.Runner
}

// NewCoordinator builds a Coordinator from deps.
func NewCoordinator(deps Dependencies) *Coordinator {
	return &Coordinator{
		deps:   deps,
		parser: astparse.NewOrchestrator(deps.Registry, deps.Classifier),
		annot:  annotate.NewRunner(deps.Layout.AnnotsDir()),
	}
}

// Run executes one batch end to end, reporting Progress on progressCh
// (which may be nil) and returning once every selected file has been
// isolated to success or failure. A batch never aborts on a single
// file's error. State is BatchFailed when selection or the embed+index
// stage fails, and BatchCancelled when ctx is cancelled while the
// selected files are being read.
func (c *Coordinator) Run(ctx context.Context, opts RunOptions, progressCh chan<- Progress) (Result, error) {
	start := time.Now()
	emit(progressCh, Progress{Phase: PhaseSelecting})

	relPaths, err := Select(ctx, opts.Select)
	if err != nil {
		return Result{State: BatchFailed, Duration: time.Since(start)}, err
	}

	result := Result{State: BatchRunning}
	if len(relPaths) == 0 {
		result.State = BatchCompleted
		result.Duration = time.Since(start)
		emit(progressCh, Progress{Phase: PhaseDone})
		return result, nil
	}

	t := newTracker(len(relPaths))

	root := opts.Select.RootPath
	inputs := make([]astparse.FileInput, 0, len(relPaths))
	skipped := make(map[string]bool)

	for _, rel := range relPaths {
		if ctx.Err() != nil {
			result.State = BatchCancelled
			result.Duration = time.Since(start)
			return result, ctx.Err()
		}

		abs := filepath.Join(root, rel)
		content, readErr := os.ReadFile(abs)
		if readErr != nil {
			result.Files = append(result.Files, FileOutcome{Path: rel, Err: readErr})
			result.ErrorCount++
			t.errors++
			if c.deps.Watch != nil {
				c.deps.Watch.RecordError(rel, readErr.Error())
			}
			continue
		}
		if diskscan.IsBinaryContent(content) {
			result.Files = append(result.Files, FileOutcome{Path: rel, Skipped: true})
			skipped[rel] = true
			continue
		}

		language := diskscan.DetectLanguage(rel)
		if language == "" {
			result.Files = append(result.Files, FileOutcome{Path: rel, Skipped: true})
			skipped[rel] = true
			continue
		}

		if !opts.Force && c.deps.Watch != nil {
			if changed, _ := c.deps.Watch.HasFileChanged(abs); !changed {
				result.Files = append(result.Files, FileOutcome{Path: rel, Skipped: true})
				skipped[rel] = true
				continue
			}
		}

		inputs = append(inputs, astparse.FileInput{Path: rel, Language: language, Content: content})
	}

	// Stage 2: parse.
	emit(progressCh, t.snapshot(PhaseParsing, ""))
	batchOpts := astparse.BatchOptions{MaxConcurrency: opts.MaxConcurrency, DryRun: opts.DryRun}
	parseBatch := c.parser.Run(ctx, inputs, batchOpts)

	parseErrByPath := make(map[string]error, len(parseBatch.Errors))
	for _, pe := range parseBatch.Errors {
		parseErrByPath[pe.Path] = fmt.Errorf("%s", pe.Err)
	}
	for _, pe := range parseBatch.Errors {
		result.Files = append(result.Files, FileOutcome{Path: pe.Path, Err: parseErrByPath[pe.Path]})
		result.ErrorCount++
		t.errors++
		t.completed++
		if c.deps.Watch != nil {
			c.deps.Watch.RecordError(pe.Path, pe.Err)
		}
	}

	if !opts.DryRun {
		for _, fr := range parseBatch.Files {
			if _, werr := astparse.WriteResult(c.deps.Layout.ASTsDir(), fr); werr != nil {
				result.Files = append(result.Files, FileOutcome{Path: fr.Path, Err: werr})
				result.ErrorCount++
				t.errors++
			}
		}
	}

	// Stage 3: annotate.
	emit(progressCh, t.snapshot(PhaseAnnotating, ""))
	jobs := make([]annotate.FileJob, 0, len(parseBatch.Files))
	for _, fr := range parseBatch.Files {
		jobs = append(jobs, annotate.FileJob{
			Result:  fr,
			Imports: collectImports(fr.Nodes),
			Exports: collectExports(fr.Nodes),
		})
	}

	mode := annotate.ModeMissing
	if opts.Force {
		mode = annotate.ModeForce
	} else if opts.AnnotateMode != "" {
		mode = annotate.Mode(opts.AnnotateMode)
	}

	annotResults := c.annot.Run(ctx, jobs, annotate.RunOptions{
		Mode:           mode,
		MaxConcurrency: opts.MaxConcurrency,
		DryRun:         opts.DryRun,
	})

	annotByPath := make(map[string][]annotate.Annotation, len(annotResults))
	for _, ar := range annotResults {
		if ar.Err != nil {
			result.Files = append(result.Files, FileOutcome{Path: ar.FilePath, Err: ar.Err})
			result.ErrorCount++
			t.errors++
			t.completed++
			if c.deps.Watch != nil {
				c.deps.Watch.RecordError(ar.FilePath, ar.Err.Error())
			}
			continue
		}
		if ar.Skipped {
			t.completed++
			continue
		}
		annotByPath[ar.FilePath] = ar.Annotations
	}

	// Stage 4: embed + index.
	emit(progressCh, t.snapshot(PhaseEmbedding, ""))
	nodesByPath := make(map[string]map[string]astschema.ASTNode, len(parseBatch.Files))
	for _, fr := range parseBatch.Files {
		m := make(map[string]astschema.ASTNode, len(fr.Nodes))
		for _, n := range fr.Nodes {
			m[n.ID] = n
		}
		nodesByPath[fr.Path] = m
	}

	if !opts.DryRun {
		if err := c.embedAndIndex(ctx, annotByPath, nodesByPath); err != nil {
			result.State = BatchFailed
			result.Duration = time.Since(start)
			return result, err
		}
	}

	// Stage 5: record.
	emit(progressCh, t.snapshot(PhaseRecording, ""))
	for _, fr := range parseBatch.Files {
		t.completed++
		result.TotalNodes += len(fr.Nodes)
		if _, failed := parseErrByPath[fr.Path]; failed {
			continue
		}
		result.Files = append(result.Files, FileOutcome{Path: fr.Path, NodeCount: len(fr.Nodes)})

		if c.deps.Watch != nil && !opts.DryRun {
			mask := watchstate.StageBit(watchstate.StageParsed)
			if _, ok := annotByPath[fr.Path]; ok {
				mask |= watchstate.StageBit(watchstate.StageAnnotated)
				mask |= watchstate.StageBit(watchstate.StageEmbedded)
			}
			c.deps.Watch.RecordSuccess(filepath.Join(root, fr.Path), mask, float64(fr.ParseTime.Milliseconds()))
		}
		emit(progressCh, t.snapshot(PhaseRecording, fr.Path))
	}

	if c.deps.Watch != nil {
		activePaths := make([]string, 0, len(relPaths))
		for _, p := range relPaths {
			activePaths = append(activePaths, filepath.Join(root, p))
		}
		c.deps.Watch.Cleanup(activePaths)
	}

	result.State = BatchCompleted
	result.Duration = time.Since(start)
	emit(progressCh, Progress{Phase: PhaseDone, Completed: t.total, Total: t.total, ErrorCount: result.ErrorCount})
	return result, nil
}

// embedAndIndex generates embeddings for every annotated node with a
// complete annotation and inserts them into the vector store in
// embedBatchSize batches, retrying transient embedding timeouts once
// per batch via asterrors.Retry.
func (c *Coordinator) embedAndIndex(ctx context.Context, annotByPath map[string][]annotate.Annotation, nodesByPath map[string]map[string]astschema.ASTNode) error {
	type pending struct {
		nodeID string
		text   string
		meta   vectorstore.VectorMetadata
	}

	var items []pending
	for path, annotations := range annotByPath {
		nodes := nodesByPath[path]
		for _, a := range annotations {
			if !a.Quality.IsComplete {
				continue
			}
			node, ok := nodes[a.NodeID]
			if !ok {
				continue
			}
			items = append(items, pending{
				nodeID: a.NodeID,
				text:   a.Signature + "\n" + a.Summary,
				meta: vectorstore.VectorMetadata{
					Signature:   a.Signature,
					Summary:     a.Summary,
					FilePath:    path,
					LineNumber:  node.Start.Line,
					Confidence:  a.Quality.SignatureConfidence,
					LastUpdated: time.Now(),
				},
			})
		}
	}

	for start := 0; start < len(items); start += embedBatchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		end := start + embedBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = it.text
		}

		vectors, err := asterrors.RetryWithResult(ctx, asterrors.RetryConfig{
			MaxRetries:        1,
			InitialDelay:      time.Second,
			BackoffMultiplier: 2.0,
			ShouldRetry:       asterrors.DefaultShouldRetry,
		}, func() ([][]float32, error) {
			return c.deps.Embedder.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return asterrors.Wrap(asterrors.KindEmbedding, "embed batch", err)
		}

		inserts := make([]vectorstore.InsertItem, len(batch))
		for i, it := range batch {
			inserts[i] = vectorstore.InsertItem{NodeID: it.nodeID, Vector: vectors[i], Metadata: it.meta}
		}
		if err := c.deps.Store.InsertVectors(ctx, inserts); err != nil {
			return asterrors.Wrap(asterrors.KindVectorStore, "insert embedded nodes", err)
		}
	}

	return nil
}

func collectImports(nodes []astschema.ASTNode) []string {
	var out []string
	for _, n := range nodes {
		if n.Type == astschema.NodeImport {
			out = append(out, n.Metadata.Imports...)
		}
	}
	return out
}

func collectExports(nodes []astschema.ASTNode) []string {
	var out []string
	for _, n := range nodes {
		if n.Type == astschema.NodeExport {
			out = append(out, n.Metadata.Exports...)
		}
	}
	return out
}
