// Package astparse drives tree-sitter over source files and produces
// the canonical astschema.ASTNode tree for each one.
package astparse

import (
	"time"

	"github.com/weftcode/astindex/internal/astschema"
)

// ParseError records a single file's parse failure without aborting
// the rest of a batch.
type ParseError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// FileResult is what ParseFile produces for one source file.
type FileResult struct {
	Path       string               `json:"path"`
	Language   string               `json:"language"`
	Nodes      []astschema.ASTNode  `json:"nodes"`
	ParseTime  time.Duration        `json:"parseTime"`
	ContentSHA string               `json:"contentSha"`
}

// BatchOptions configures Orchestrator.Run.
type BatchOptions struct {
	MaxConcurrency int
	DryRun         bool // parse and classify but skip the write-to-disk step
}

// BatchResult is the aggregate outcome of parsing a set of files.
type BatchResult struct {
	Files  []FileResult `json:"files"`
	Errors []ParseError `json:"errors"`
}
