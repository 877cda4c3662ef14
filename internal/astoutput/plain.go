package astoutput

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/weftcode/astindex/internal/pipeline"
)

// PlainRenderer writes one line per progress update, grounded on the
// teacher's ui.PlainRenderer (mutex-guarded io.Writer, [STAGE] n/total
// line format) adapted from Stage/ProgressEvent to pipeline.Phase/
// pipeline.Progress.
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	noColor bool
	phase   pipeline.Phase
	errors  []ErrorEvent
}

// NewPlainRenderer builds a PlainRenderer writing to cfg.Output.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, noColor: cfg.NoColor}
}

// Start implements Renderer.
func (r *PlainRenderer) Start() error { return nil }

// Report implements Renderer.
func (r *PlainRenderer) Report(p pipeline.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = p.Phase

	label := phaseIcon(p.Phase)
	switch {
	case p.Total > 0 && p.CurrentFile != "":
		fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", label, p.Completed, p.Total, p.CurrentFile)
	case p.Total > 0:
		fmt.Fprintf(r.out, "[%s] %d/%d\n", label, p.Completed, p.Total)
	default:
		fmt.Fprintf(r.out, "[%s]\n", label)
	}
}

// ReportError implements Renderer.
func (r *PlainRenderer) ReportError(e ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)

	prefix := "ERROR"
	if e.IsWarn {
		prefix = "WARN"
	}
	if e.Path != "" {
		fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, e.Path, e.Err)
	} else {
		fmt.Fprintf(r.out, "%s: %v\n", prefix, e.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "Done: %d files (%d skipped), %d nodes indexed in %s",
		s.FilesProcessed, s.FilesSkipped, s.NodesIndexed, s.Duration.Round(100*time.Millisecond))

	if s.Errors > 0 || s.Warnings > 0 {
		fmt.Fprintf(r.out, " (%d errors, %d warnings)", s.Errors, s.Warnings)
	}
	fmt.Fprintln(r.out)

	if s.EmbedderModel != "" {
		fmt.Fprintf(r.out, "Embedder: %s\n", s.EmbedderModel)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error { return nil }

func phaseIcon(p pipeline.Phase) string {
	switch p {
	case pipeline.PhaseSelecting:
		return "SELECT"
	case pipeline.PhaseParsing:
		return "PARSE"
	case pipeline.PhaseAnnotating:
		return "ANNOTATE"
	case pipeline.PhaseEmbedding:
		return "EMBED"
	case pipeline.PhaseIndexing:
		return "INDEX"
	case pipeline.PhaseRecording:
		return "RECORD"
	case pipeline.PhaseDone:
		return "DONE"
	default:
		return "???"
	}
}
