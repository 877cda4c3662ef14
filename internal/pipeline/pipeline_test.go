package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftcode/astindex/internal/astschema"
	"github.com/weftcode/astindex/internal/indexstore"
	"github.com/weftcode/astindex/internal/vectorize"
	"github.com/weftcode/astindex/internal/vectorstore"
	"github.com/weftcode/astindex/internal/watchstate"
)

func newTestCoordinator(t *testing.T, root string) (*Coordinator, *watchstate.Manager) {
	t.Helper()

	layout := indexstore.DefaultLayout(root)
	require.NoError(t, layout.EnsureDirs())

	store, err := vectorstore.Open(
		vectorstore.DefaultConfig(vectorize.DefaultDimensions, layout.VectorsDBPath(), layout.HNSWIndexPath()),
		vectorstore.NewMetrics(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })

	watch, err := watchstate.Open(layout.WatchStatePath(), watchstate.WatchConfig{}, "test-session")
	require.NoError(t, err)
	t.Cleanup(func() { _ = watch.Shutdown() })

	deps := Dependencies{
		Layout:     layout,
		Registry:   astschema.NewRegistry(),
		Classifier: astschema.NewClassifier(astschema.NewRegistry()),
		Embedder:   vectorize.NewStaticEmbedder(vectorize.DefaultDimensions),
		Store:      store,
		Watch:      watch,
	}
	return NewCoordinator(deps), watch
}

func writeGoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

const sampleGoSource = `package sample

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}
`

func TestCoordinator_Run_GlobSelection_ParsesAnnotatesEmbeds(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "sample.go", sampleGoSource)

	coord, watch := newTestCoordinator(t, root)

	result, err := coord.Run(context.Background(), RunOptions{
		Select:         SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root},
		MaxConcurrency: 2,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, BatchCompleted, result.State)
	assert.Zero(t, result.ErrorCount)
	assert.Greater(t, result.TotalNodes, 0)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "sample.go", result.Files[0].Path)

	assert.Equal(t, 1, watch.FileCount())
}

func TestCoordinator_Run_SkipsUnchangedOnSecondPass(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "sample.go", sampleGoSource)

	coord, _ := newTestCoordinator(t, root)
	ctx := context.Background()
	opts := RunOptions{Select: SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root}}

	first, err := coord.Run(ctx, opts, nil)
	require.NoError(t, err)
	require.Equal(t, BatchCompleted, first.State)

	second, err := coord.Run(ctx, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, BatchCompleted, second.State)

	var skipped bool
	for _, f := range second.Files {
		if f.Path == "sample.go" && f.Skipped {
			skipped = true
		}
	}
	assert.True(t, skipped, "unchanged file should be skipped on the second pass")
}

func TestCoordinator_Run_ForceReprocessesUnchangedFile(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "sample.go", sampleGoSource)

	coord, _ := newTestCoordinator(t, root)
	ctx := context.Background()
	opts := RunOptions{Select: SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root}}

	_, err := coord.Run(ctx, opts, nil)
	require.NoError(t, err)

	opts.Force = true
	result, err := coord.Run(ctx, opts, nil)
	require.NoError(t, err)
	assert.Greater(t, result.TotalNodes, 0)
}

func TestCoordinator_Run_EmptySelectionCompletesImmediately(t *testing.T) {
	root := t.TempDir()
	coord, _ := newTestCoordinator(t, root)

	result, err := coord.Run(context.Background(), RunOptions{
		Select: SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, BatchCompleted, result.State)
	assert.Empty(t, result.Files)
}

func TestCoordinator_Run_IsolatesUnreadableFileWithoutAbortingBatch(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "sample.go", sampleGoSource)
	writeGoFile(t, root, "broken.go", "package sample\nfunc Broken(")

	coord, _ := newTestCoordinator(t, root)

	result, err := coord.Run(context.Background(), RunOptions{
		Select: SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, BatchCompleted, result.State)
	var sawSample bool
	for _, f := range result.Files {
		if f.Path == "sample.go" {
			sawSample = true
		}
	}
	assert.True(t, sawSample, "a broken sibling file must not prevent a healthy file from being indexed")
}

func TestCoordinator_Run_DryRunWritesNothingToDisk(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "sample.go", sampleGoSource)

	coord, _ := newTestCoordinator(t, root)
	layout := indexstore.DefaultLayout(root)

	result, err := coord.Run(context.Background(), RunOptions{
		Select: SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root},
		DryRun: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, BatchCompleted, result.State)

	entries, err := os.ReadDir(layout.ASTsDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not write parsed ASTs to disk")
}

func TestCoordinator_Run_ReportsProgress(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "sample.go", sampleGoSource)

	coord, _ := newTestCoordinator(t, root)
	progressCh := make(chan Progress, 32)

	_, err := coord.Run(context.Background(), RunOptions{
		Select: SelectOptions{Mode: SelectGlob, Glob: "*.go", RootPath: root},
	}, progressCh)
	require.NoError(t, err)
	close(progressCh)

	var sawDone bool
	for p := range progressCh {
		if p.Phase == PhaseDone {
			sawDone = true
		}
	}
	assert.True(t, sawDone)
}

func TestSelect_ChangedRequiresGitWorkspace(t *testing.T) {
	root := t.TempDir()
	_, err := Select(context.Background(), SelectOptions{Mode: SelectChanged, RootPath: root})
	require.Error(t, err)
}

func TestSelect_ConfigModeReturnsExplicitPaths(t *testing.T) {
	paths, err := Select(context.Background(), SelectOptions{Mode: SelectConfig, ConfigPaths: []string{"a.go", "b.go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, paths)
}

func TestSelect_UnknownModeIsRejected(t *testing.T) {
	_, err := Select(context.Background(), SelectOptions{Mode: "bogus"})
	require.Error(t, err)
}
