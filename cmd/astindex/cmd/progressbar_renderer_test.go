package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/weftcode/astindex/internal/astoutput"
	"github.com/weftcode/astindex/internal/pipeline"
)

func TestBarRenderer_StartsNewBarOnPhaseChange(t *testing.T) {
	var out bytes.Buffer
	r := newBarRenderer(&out)

	r.Report(pipeline.Progress{Phase: pipeline.PhaseParsing, Total: 10, Completed: 5})
	first := r.bar
	assert.NotNil(t, first)

	r.Report(pipeline.Progress{Phase: pipeline.PhaseAnnotating, Total: 4, Completed: 1})
	assert.NotSame(t, first, r.bar)
}

func TestBarRenderer_CompletePrintsSummary(t *testing.T) {
	var out bytes.Buffer
	r := newBarRenderer(&out)

	r.Complete(astoutput.Summary{FilesProcessed: 3, NodesIndexed: 12, Duration: 2 * time.Second})
	assert.Contains(t, out.String(), "3 files")
	assert.Contains(t, out.String(), "12 nodes")
}

func TestBarRenderer_ReportErrorWritesLine(t *testing.T) {
	var out bytes.Buffer
	r := newBarRenderer(&out)

	r.ReportError(astoutput.ErrorEvent{Path: "a.go", Err: assert.AnError})
	assert.Contains(t, out.String(), "a.go")
	assert.Contains(t, out.String(), "ERROR")
}

func TestPhaseDescription_KnownAndUnknownPhases(t *testing.T) {
	assert.Equal(t, "Parsing", phaseDescription(pipeline.PhaseParsing))
	assert.Equal(t, "custom", phaseDescription(pipeline.Phase("custom")))
}
