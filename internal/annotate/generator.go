package annotate

import (
	"fmt"
	"strings"

	"github.com/weftcode/astindex/internal/astschema"
)

// Generator derives an Annotation for each ASTNode in a file. It is
// language-agnostic: per-language behavior only ever comes from
// context.Language selecting a template, never from bespoke
// per-language code paths.
type Generator struct{}

// NewGenerator builds a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Annotate produces one Annotation per node in ctx.AllNodes.
func (g *Generator) Annotate(ctx AnnotationContext) []Annotation {
	out := make([]Annotation, 0, len(ctx.AllNodes))
	for _, n := range ctx.AllNodes {
		out = append(out, g.AnnotateNode(n, ctx))
	}
	return out
}

// AnnotateNode derives the Annotation for a single node.
func (g *Generator) AnnotateNode(n astschema.ASTNode, ctx AnnotationContext) Annotation {
	signature, sigConf := g.signature(n)
	summary, sumConf := g.summary(n, ctx)

	complete := sigConf > DefaultCompletenessThreshold &&
		sumConf > DefaultCompletenessThreshold &&
		signature != ""

	return Annotation{
		NodeID:    n.ID,
		Signature: signature,
		Summary:   summary,
		Quality: Quality{
			SignatureConfidence: sigConf,
			SummaryConfidence:   sumConf,
			IsComplete:          complete,
		},
		LanguageSpecific: map[string]string{
			"language": n.Metadata.Language,
		},
	}
}

// signature extracts the declarative first line of a node's source
// text, mirroring extractFunctionSignature/extractTypeSignature's
// "up to the opening brace or colon" rule.
func (g *Generator) signature(n astschema.ASTNode) (string, float64) {
	if n.Signature != "" {
		return n.Signature, 0.95
	}
	if !astschema.IsDeclarationType(n.Type) && !astschema.IsContainerType(n.Type) {
		return "", 0.9 // non-declarations legitimately have no signature
	}

	text := strings.TrimSpace(n.SourceText)
	if text == "" {
		return "", 0.3
	}

	line := firstSignatureLine(text)
	if line == "" {
		return "", 0.4
	}
	return line, 0.9
}

// firstSignatureLine truncates source text at the opening brace,
// colon (Python-style block), or first newline, whichever comes
// first.
func firstSignatureLine(text string) string {
	cut := len(text)
	for _, tok := range []string{"{", ":", "\n"} {
		if idx := strings.Index(text, tok); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(text[:cut])
}

// summary builds a one-sentence, template-based description of a
// node, in the style of the teacher's pattern-based context
// generator: "From file: X. Defines: kind name. Purpose: doc."
func (g *Generator) summary(n astschema.ASTNode, ctx AnnotationContext) (string, float64) {
	var parts []string
	parts = append(parts, fmt.Sprintf("From file: %s", n.FilePath))

	if n.Name != "" {
		parts = append(parts, fmt.Sprintf("Defines: %s %s", n.Type, n.Name))
	} else {
		parts = append(parts, fmt.Sprintf("A %s node", n.Type))
	}

	confidence := 0.75
	if doc := strings.TrimSpace(n.Metadata.Docstring); doc != "" {
		parts = append(parts, fmt.Sprintf("Purpose: %s", firstSentence(doc)))
		confidence = 0.9
	}

	if len(n.Metadata.Scope) > 0 {
		parts = append(parts, fmt.Sprintf("Scope: %s", strings.Join(n.Metadata.Scope, ".")))
	}

	if ctx.Language != "" {
		parts = append(parts, fmt.Sprintf("Language: %s", ctx.Language))
	}

	if n.Name == "" && n.Metadata.Docstring == "" {
		confidence = 0.6
	}

	return strings.Join(parts, ". ") + ".", confidence
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimSpace(text)

	for i, r := range text {
		if r == '.' || r == '\n' {
			return strings.TrimSuffix(strings.TrimSpace(text[:i+1]), ".")
		}
	}
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}
