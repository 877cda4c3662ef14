package astparse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftcode/astindex/internal/astschema"
)

func newParser() *Parser {
	registry := astschema.NewRegistry()
	classifier := astschema.NewClassifier(registry)
	return NewParser(registry, classifier)
}

func TestParseFile_GoSource_ProducesFileRootAndFunction(t *testing.T) {
	p := newParser()
	defer p.Close()

	src := []byte("package main\n\nfunc greet() {\n\tprintln(\"hi\")\n}\n")
	res, err := p.ParseFile(context.Background(), "greet.go", "go", src)
	require.NoError(t, err)

	assert.Equal(t, "greet.go", res.Path)
	assert.Equal(t, "go", res.Language)
	assert.NotEmpty(t, res.ContentSHA)
	require.NotEmpty(t, res.Nodes)

	var sawFile, sawFunc bool
	for _, n := range res.Nodes {
		if n.Type == astschema.NodeFile {
			sawFile = true
		}
		if n.Type == astschema.NodeFunction {
			sawFunc = true
			assert.Equal(t, "greet", n.Name)
		}
	}
	assert.True(t, sawFile, "expected a file node")
	assert.True(t, sawFunc, "expected a function node")
}

func TestParseFile_UnsupportedLanguage_ReturnsError(t *testing.T) {
	p := newParser()
	defer p.Close()

	_, err := p.ParseFile(context.Background(), "x.rs", "rust", []byte("fn main() {}"))
	assert.Error(t, err)
}

func TestParseFile_NodeIDStableAcrossReparse(t *testing.T) {
	p := newParser()
	defer p.Close()

	src := []byte("package main\n\nfunc greet() {}\n")
	res1, err := p.ParseFile(context.Background(), "greet.go", "go", src)
	require.NoError(t, err)
	res2, err := p.ParseFile(context.Background(), "greet.go", "go", src)
	require.NoError(t, err)

	require.Equal(t, len(res1.Nodes), len(res2.Nodes))
	for i := range res1.Nodes {
		assert.Equal(t, res1.Nodes[i].ID, res2.Nodes[i].ID)
	}
}

func TestParseFile_ParentChildLinksAreConsistent(t *testing.T) {
	p := newParser()
	defer p.Close()

	src := []byte("package main\n\nfunc greet() {}\n")
	res, err := p.ParseFile(context.Background(), "greet.go", "go", src)
	require.NoError(t, err)

	byID := make(map[string]astschema.ASTNode, len(res.Nodes))
	for _, n := range res.Nodes {
		byID[n.ID] = n
	}
	for _, n := range res.Nodes {
		for _, childID := range n.Children {
			child, ok := byID[childID]
			require.True(t, ok, "child %s of %s must exist in node set", childID, n.ID)
			assert.Equal(t, n.ID, child.Parent)
		}
	}
}

func TestOrchestrator_Run_IsolatesPerFileErrors(t *testing.T) {
	registry := astschema.NewRegistry()
	classifier := astschema.NewClassifier(registry)
	o := NewOrchestrator(registry, classifier)

	files := []FileInput{
		{Path: "good.go", Language: "go", Content: []byte("package main\n\nfunc ok() {}\n")},
		{Path: "bad.rs", Language: "rust", Content: []byte("fn main() {}")},
	}

	batch := o.Run(context.Background(), files, BatchOptions{MaxConcurrency: 2})
	require.Len(t, batch.Files, 1)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "good.go", batch.Files[0].Path)
	assert.Equal(t, "bad.rs", batch.Errors[0].Path)
}

func TestOrchestrator_Run_EmptyInputReturnsEmptyBatch(t *testing.T) {
	registry := astschema.NewRegistry()
	classifier := astschema.NewClassifier(registry)
	o := NewOrchestrator(registry, classifier)

	batch := o.Run(context.Background(), nil, BatchOptions{})
	assert.Empty(t, batch.Files)
	assert.Empty(t, batch.Errors)
}

func TestWriteResult_AtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := newParser()
	defer p.Close()

	res, err := p.ParseFile(context.Background(), "greet.go", "go", []byte("package main\n\nfunc greet() {}\n"))
	require.NoError(t, err)

	path, err := WriteResult(dir, res)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "greet.go")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNodeID_ChangesWithPositionOrText(t *testing.T) {
	pos := astschema.Position{Line: 1, Column: 0}
	end := astschema.Position{Line: 1, Column: 5}
	id1 := NodeID("f.go", astschema.NodeFunction, pos, end, "foo", "func foo ( ) { }")
	id2 := NodeID("f.go", astschema.NodeFunction, pos, end, "bar", "func foo ( ) { }")
	assert.NotEqual(t, id1, id2)
}

func TestNormalizeSourceText_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "func foo ( ) { }", NormalizeSourceText("func   foo ( )  {\n\t}"))
}
