package astoutput

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftcode/astindex/internal/pipeline"
)

func TestIsTTY_NonFileWriterIsFalse(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestIsTTY_RegularFileIsNotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTTY(f))
}

func TestDetectNoColor_RespectsEnvVar(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI_RespectsKnownVars(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestShouldUsePlain_ForcePlainAlwaysWins(t *testing.T) {
	cfg := NewConfig(&bytes.Buffer{}, WithForcePlain(true))
	assert.True(t, ShouldUsePlain(cfg))
}

func TestShouldUsePlain_NonTTYOutputIsPlain(t *testing.T) {
	cfg := NewConfig(&bytes.Buffer{})
	assert.True(t, ShouldUsePlain(cfg))
}

func TestPlainRenderer_ReportFormatsPhaseAndProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))
	require.NoError(t, r.Start())

	r.Report(pipeline.Progress{Phase: pipeline.PhaseParsing, Completed: 2, Total: 10, CurrentFile: "a.go"})
	assert.Contains(t, buf.String(), "[PARSE] 2/10 - a.go")
}

func TestPlainRenderer_ReportWithoutTotalOmitsCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.Report(pipeline.Progress{Phase: pipeline.PhaseSelecting})
	assert.Equal(t, "[SELECT]\n", buf.String())
}

func TestPlainRenderer_ReportErrorDistinguishesWarnings(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.ReportError(ErrorEvent{Path: "broken.go", Err: errors.New("parse failed")})
	assert.Contains(t, buf.String(), "ERROR: broken.go: parse failed")

	buf.Reset()
	r.ReportError(ErrorEvent{Path: "legacy.go", Err: errors.New("low confidence"), IsWarn: true})
	assert.Contains(t, buf.String(), "WARN: legacy.go: low confidence")
}

func TestPlainRenderer_CompleteSummarizesCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.Complete(Summary{
		FilesProcessed: 12,
		FilesSkipped:   3,
		NodesIndexed:   140,
		Errors:         1,
		Duration:       2500 * time.Millisecond,
		EmbedderModel:  "static768",
	})

	out := buf.String()
	assert.Contains(t, out, "12 files (3 skipped)")
	assert.Contains(t, out, "140 nodes indexed")
	assert.Contains(t, out, "1 errors")
	assert.Contains(t, out, "Embedder: static768")
	require.NoError(t, r.Stop())
}

func TestNewRenderer_ReturnsPlainRenderer(t *testing.T) {
	r := NewRenderer(NewConfig(&bytes.Buffer{}))
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}
