package astparse

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/weftcode/astindex/internal/astschema"
)

// Parser wraps a tree-sitter parser bound to the indexer's language
// registry and classifier.
type Parser struct {
	sitterParser *sitter.Parser
	registry     *astschema.Registry
	classifier   *astschema.Classifier
}

// NewParser builds a Parser. The classifier's Stats accumulate across
// every call to ParseFile made through this Parser.
func NewParser(registry *astschema.Registry, classifier *astschema.Classifier) *Parser {
	return &Parser{
		sitterParser: sitter.NewParser(),
		registry:     registry,
		classifier:   classifier,
	}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.sitterParser != nil {
		p.sitterParser.Close()
	}
}

// ParseFile parses content under the detected language and returns the
// canonical ASTNode tree, rooted at a single NodeFile node.
func (p *Parser) ParseFile(ctx context.Context, path, language string, content []byte) (FileResult, error) {
	start := time.Now()

	tsLang, ok := p.registry.TreeSitterLanguage(language)
	if !ok {
		return FileResult{}, fmt.Errorf("unsupported language: %s", language)
	}

	p.sitterParser.SetLanguage(tsLang)

	tree, err := p.sitterParser.ParseCtx(ctx, nil, content)
	if err != nil {
		return FileResult{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if tree == nil {
		return FileResult{}, fmt.Errorf("parse %s: nil tree", path)
	}
	defer tree.Close()

	w := &walker{
		path:       path,
		language:   language,
		content:    content,
		classifier: p.classifier,
	}
	nodes := w.walk(tree.RootNode(), "")

	return FileResult{
		Path:       path,
		Language:   language,
		Nodes:      nodes,
		ParseTime:  time.Since(start),
		ContentSHA: ContentSHA256(content),
	}, nil
}
