package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftcode/astindex/internal/annotate"
	"github.com/weftcode/astindex/internal/pipeline"
)

func TestBuildSelectOptions_ChangedAndStagedAreMutuallyExclusive(t *testing.T) {
	_, err := buildSelectOptions("/workspace", true, true, "", "", nil)
	assert.Error(t, err)
}

func TestBuildSelectOptions_ChangedSelectsChangedMode(t *testing.T) {
	opts, err := buildSelectOptions("/workspace", true, false, "", "HEAD~1", nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.SelectChanged, opts.Mode)
	assert.Equal(t, "HEAD~1", opts.BaseRef)
}

func TestBuildSelectOptions_GlobTakesPrecedenceOverConfigPaths(t *testing.T) {
	opts, err := buildSelectOptions("/workspace", false, false, "**/*.go", "", []string{"a.go"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.SelectGlob, opts.Mode)
	assert.Equal(t, "**/*.go", opts.Glob)
}

func TestBuildSelectOptions_ConfigPathsUsedWhenNoOtherModeGiven(t *testing.T) {
	opts, err := buildSelectOptions("/workspace", false, false, "", "", []string{"a.go", "b.go"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.SelectConfig, opts.Mode)
	assert.Equal(t, []string{"a.go", "b.go"}, opts.ConfigPaths)
}

func TestBuildSelectOptions_DefaultsToGlobEverything(t *testing.T) {
	opts, err := buildSelectOptions("/workspace", false, false, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.SelectGlob, opts.Mode)
	assert.Equal(t, "**/*", opts.Glob)
}

func TestAnnotateModeName_EmptyModeDefaultsToMissing(t *testing.T) {
	assert.Equal(t, string(annotate.ModeMissing), annotateModeName(""))
}

func TestAnnotateModeName_PassesThroughExplicitMode(t *testing.T) {
	assert.Equal(t, string(annotate.ModeForce), annotateModeName(annotate.ModeForce))
}

func TestNewRootCmd_RegistersEverySubcommand(t *testing.T) {
	root := NewRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"init", "parse", "annotate", "embed", "query", "watch", "rebuild-index", "snapshot", "serve", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewSnapshotCmd_RegistersEverySubcommand(t *testing.T) {
	root := newSnapshotCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"create", "restore", "list", "publish", "download", "delete"} {
		assert.True(t, names[want], "missing snapshot subcommand %q", want)
	}
}
