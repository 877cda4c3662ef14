package cmd

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/weftcode/astindex/internal/astoutput"
	"github.com/weftcode/astindex/internal/pipeline"
)

// barRenderer renders pipeline.Progress as a live progress bar, one
// bar per phase, grounded on the teacher's cmd/cie progress-callback
// idiom (a new bar is started whenever the reported phase changes).
// Used by parse/annotate/embed in place of astoutput's plain
// line-per-update fallback when stdout is an interactive terminal.
type barRenderer struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	phase pipeline.Phase
}

func newBarRenderer(out io.Writer) *barRenderer {
	return &barRenderer{out: out}
}

func (r *barRenderer) Start() error { return nil }

func (r *barRenderer) Report(p pipeline.Progress) {
	if p.Phase != r.phase || r.bar == nil {
		if r.bar != nil {
			_ = r.bar.Finish()
		}
		r.phase = p.Phase
		total := p.Total
		if total <= 0 {
			total = 1
		}
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(phaseDescription(p.Phase)),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
		)
	}
	if p.Completed > 0 {
		_ = r.bar.Set(p.Completed)
	}
}

func (r *barRenderer) ReportError(e astoutput.ErrorEvent) {
	prefix := "ERROR"
	if e.IsWarn {
		prefix = "WARN"
	}
	fmt.Fprintf(r.out, "\n%s: %s: %v\n", prefix, e.Path, e.Err)
}

func (r *barRenderer) Complete(s astoutput.Summary) {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	fmt.Fprintf(r.out, "Done: %d files (%d skipped), %d nodes indexed in %s\n",
		s.FilesProcessed, s.FilesSkipped, s.NodesIndexed, s.Duration.Round(1e8))
	if s.Errors > 0 {
		fmt.Fprintf(r.out, "%d errors\n", s.Errors)
	}
}

func (r *barRenderer) Stop() error {
	if r.bar != nil {
		return r.bar.Finish()
	}
	return nil
}

func phaseDescription(p pipeline.Phase) string {
	switch p {
	case pipeline.PhaseSelecting:
		return "Selecting files"
	case pipeline.PhaseParsing:
		return "Parsing"
	case pipeline.PhaseAnnotating:
		return "Annotating"
	case pipeline.PhaseEmbedding:
		return "Embedding"
	case pipeline.PhaseIndexing:
		return "Indexing"
	case pipeline.PhaseRecording:
		return "Recording"
	default:
		return string(p)
	}
}
