// Package annotate derives a signature, summary, and quality score for
// every ASTNode produced by internal/astparse.
package annotate

import "github.com/weftcode/astindex/internal/astschema"

// AnnotationContext is the shared, file-level context every node in a
// file is annotated against.
type AnnotationContext struct {
	FilePath   string
	Language   string
	SourceText []byte
	AllNodes   []astschema.ASTNode
	Imports    []string
	Exports    []string
}

// Quality scores how much an Annotation can be trusted for downstream
// embedding and search.
type Quality struct {
	SignatureConfidence float64 `json:"signatureConfidence"`
	SummaryConfidence   float64 `json:"summaryConfidence"`
	IsComplete          bool    `json:"isComplete"`
}

// Annotation is the derived, embedding-ready description of one node.
type Annotation struct {
	NodeID           string            `json:"nodeId"`
	Signature        string            `json:"signature"`
	Summary          string            `json:"summary"`
	Quality          Quality           `json:"quality"`
	LanguageSpecific map[string]string `json:"languageSpecific,omitempty"`
}

// DefaultCompletenessThreshold is the per-kind confidence floor below
// which an annotation is never considered complete, per spec.
const DefaultCompletenessThreshold = 0.8

// Mode selects which nodes an annotation run reprocesses.
type Mode string

const (
	// ModeForce reprocesses every node regardless of existing annotations.
	ModeForce Mode = "force"
	// ModeChanged reprocesses a file when any of its first N nodes has no
	// annotation file; existing annotations are not checked for staleness.
	ModeChanged Mode = "changed"
	// ModeMissing reprocesses a file when any of its first 10 probed
	// nodes is unannotated. This is the default mode.
	ModeMissing Mode = "missing"
)

// ChangedProbeCount and MissingProbeCount are the spec's fixed probe
// depths for the changed/missing modes.
const (
	ChangedProbeCount = 5
	MissingProbeCount = 10
)
