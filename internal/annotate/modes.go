package annotate

import (
	"os"
	"path/filepath"

	"github.com/weftcode/astindex/internal/astschema"
)

// ShouldReprocess decides, for a given mode, whether a file's nodes
// need (re)annotation. annotsDir is probed for existing
// `{nodeId}.json` files; under ModeChanged and ModeMissing a file is
// reprocessed only when a probed node has no annotation file. Existing
// annotation files are not read, so a stale annotation is not detected.
func ShouldReprocess(mode Mode, annotsDir string, nodes []astschema.ASTNode) bool {
	switch mode {
	case ModeForce:
		return true
	case ModeChanged:
		return anyMissing(annotsDir, probe(nodes, ChangedProbeCount))
	default: // ModeMissing, and any unrecognized mode falls back to the default
		return anyMissing(annotsDir, probe(nodes, MissingProbeCount))
	}
}

func probe(nodes []astschema.ASTNode, n int) []astschema.ASTNode {
	if n > len(nodes) {
		n = len(nodes)
	}
	return nodes[:n]
}

func anyMissing(annotsDir string, nodes []astschema.ASTNode) bool {
	for _, n := range nodes {
		path := filepath.Join(annotsDir, n.ID+".json")
		if _, err := os.Stat(path); err != nil {
			return true
		}
	}
	return false
}
