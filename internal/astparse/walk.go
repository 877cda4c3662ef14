package astparse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/weftcode/astindex/internal/astschema"
)

// walker converts a tree-sitter tree into a flat slice of
// astschema.ASTNode, assigning each node a content-stable ID and
// wiring parent/child references as it descends.
type walker struct {
	path       string
	language   string
	content    []byte
	classifier *astschema.Classifier
	scope      []string
}

func (w *walker) walk(root *sitter.Node, parentID string) []astschema.ASTNode {
	var nodes []astschema.ASTNode
	w.visit(root, "", parentID, &nodes)
	return nodes
}

func (w *walker) visit(n *sitter.Node, parentType, parentID string, out *[]astschema.ASTNode) string {
	if n == nil {
		return ""
	}

	name := w.nameOf(n)
	start := astschema.Position{Line: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column)}
	end := astschema.Position{Line: int(n.EndPoint().Row) + 1, Column: int(n.EndPoint().Column)}

	classification := w.classifier.Classify(astschema.RawNode{
		Type:       n.Type(),
		Name:       name,
		ParentType: parentType,
		Language:   w.language,
	})

	text := w.contentOf(n)
	normalized := NormalizeSourceText(text)
	id := NodeID(w.path, classification.NodeType, start, end, name, normalized)

	node := astschema.ASTNode{
		ID:           id,
		Type:         classification.NodeType,
		Name:         name,
		FilePath:     w.path,
		Start:        start,
		End:          end,
		Parent:       parentID,
		Significance: significanceFor(classification.NodeType),
		Metadata: astschema.Metadata{
			Language: w.language,
			Scope:    append([]string(nil), w.scope...),
		},
	}
	if len(text) > astschema.MaxSourceTextLen {
		node.SourceText = text[:astschema.MaxSourceTextLen]
	} else {
		node.SourceText = text
	}

	pushScope := astschema.IsContainerType(classification.NodeType) && name != ""
	if pushScope {
		w.scope = append(w.scope, name)
	}

	childCount := int(n.ChildCount())
	children := make([]string, 0, childCount)
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		childID := w.visit(child, n.Type(), id, out)
		if childID != "" {
			children = append(children, childID)
		}
	}
	node.Children = children

	if pushScope {
		w.scope = w.scope[:len(w.scope)-1]
	}

	*out = append(*out, node)
	return id
}

// nameOf extracts a name from common tree-sitter shapes: an
// "identifier"/"property_identifier"/"type_identifier" child, or the
// node's own text when it is itself an identifier.
func (w *walker) nameOf(n *sitter.Node) string {
	switch n.Type() {
	case "identifier", "property_identifier", "type_identifier", "field_identifier":
		return w.contentOf(n)
	}

	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "property_identifier", "type_identifier", "field_identifier":
			return w.contentOf(child)
		}
	}
	return ""
}

func (w *walker) contentOf(n *sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if start >= end || int(end) > len(w.content) {
		return ""
	}
	return string(w.content[start:end])
}

func significanceFor(t astschema.NodeType) astschema.SignificanceLevel {
	switch t {
	case astschema.NodeFile, astschema.NodeClass, astschema.NodeInterface, astschema.NodeFunction, astschema.NodeMethod:
		return astschema.SignificanceCritical
	case astschema.NodeConstructor, astschema.NodeEnum, astschema.NodeTypeAlias, astschema.NodeExport:
		return astschema.SignificanceHigh
	case astschema.NodeVariable, astschema.NodeProperty, astschema.NodeField, astschema.NodeImport:
		return astschema.SignificanceMedium
	case astschema.NodeParameter, astschema.NodeGetter, astschema.NodeSetter:
		return astschema.SignificanceLow
	default:
		return astschema.SignificanceMinimal
	}
}
