// Package astoutput renders internal/pipeline progress to the terminal,
// choosing a plain line-oriented format for non-interactive output and
// leaving TTY-aware dashboard rendering to the cmd/astindex layer. It is
// grounded on the teacher's internal/ui package (Renderer interface,
// TTY/CI detection, plain-text renderer) adapted to this module's
// pipeline.Progress/pipeline.Phase domain instead of the teacher's
// Stage/ProgressEvent shape.
package astoutput

import (
	"io"
	"time"

	"github.com/weftcode/astindex/internal/pipeline"
)

// ErrorEvent is a single file's failure surfaced during a run.
type ErrorEvent struct {
	Path   string
	Err    error
	IsWarn bool
}

// Summary is the final report handed to Renderer.Complete once a batch
// finishes.
type Summary struct {
	FilesProcessed int
	FilesSkipped   int
	NodesIndexed   int
	Errors         int
	Warnings       int
	Duration       time.Duration
	EmbedderModel  string
}

// Renderer displays one pipeline.Coordinator.Run's progress end to end.
type Renderer interface {
	Start() error
	Report(p pipeline.Progress)
	ReportError(e ErrorEvent)
	Complete(s Summary)
	Stop() error
}

// Config configures NewRenderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// ConfigOption mutates a Config.
type ConfigOption func(*Config)

// WithForcePlain forces the plain-text renderer regardless of TTY
// detection, for scripted invocations.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) { c.ForcePlain = force }
}

// WithNoColor disables ANSI color in the plain renderer's output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) { c.NoColor = noColor }
}

// NewConfig builds a Config writing to output, applying opts.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
