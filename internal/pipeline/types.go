// Package pipeline sequences the select -> parse -> annotate -> embed+index
// -> record stages into a single batch run over C3-C8, mirroring the
// teacher's internal/index coordinator/runner split.
package pipeline

import "time"

// SelectMode is the closed set of ways a batch's file set can be chosen.
type SelectMode string

const (
	SelectChanged SelectMode = "changed"
	SelectStaged  SelectMode = "staged"
	SelectGlob    SelectMode = "glob"
	SelectConfig  SelectMode = "config"
)

// Phase names a stage of the pipeline for progress reporting.
type Phase string

const (
	PhaseSelecting Phase = "selecting"
	PhaseParsing   Phase = "parsing"
	PhaseAnnotating Phase = "annotating"
	PhaseEmbedding Phase = "embedding"
	PhaseIndexing  Phase = "indexing"
	PhaseRecording Phase = "recording"
	PhaseDone      Phase = "done"
)

// BatchState is the closed state machine a Run transitions through.
type BatchState string

const (
	BatchPending   BatchState = "pending"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchFailed    BatchState = "failed"
	BatchCancelled BatchState = "cancelled"
)

// Progress is a snapshot of a running batch, emitted on the channel
// passed to Coordinator.Run at each phase change and once per recorded
// file.
type Progress struct {
	Completed              int
	Total                  int
	CurrentFile            string
	Rate                   float64 // files per second, trailing window
	EstimatedTimeRemaining time.Duration
	MemoryUsageMB          float64
	Phase                  Phase
	ErrorCount             int
}

// SelectOptions configures Select. Exactly one selection mode applies;
// Changed and Staged require the workspace root to be inside a VCS
// checkout.
type SelectOptions struct {
	Mode       SelectMode
	Glob       string   // used when Mode == SelectGlob
	ConfigPaths []string // used when Mode == SelectConfig
	BaseRef    string   // used when Mode == SelectChanged, defaults to HEAD
	RootPath   string
}

// RunOptions configures Coordinator.Run.
type RunOptions struct {
	Select         SelectOptions
	Force          bool
	BatchSize      int
	MaxConcurrency int
	DryRun         bool
	AnnotateMode   string // forwarded to internal/annotate as annotate.Mode
}

// FileOutcome is the per-file result of one pipeline run, the unit
// Result.Files accumulates.
type FileOutcome struct {
	Path      string
	Skipped   bool
	Err       error
	NodeCount int
}

// Result is the aggregate outcome of one Coordinator.Run call.
type Result struct {
	State       BatchState
	Files       []FileOutcome
	TotalNodes  int
	ErrorCount  int
	Duration    time.Duration
}
