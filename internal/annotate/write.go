package annotate

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/weftcode/astindex/internal/indexstore"
)

// WriteAnnotation atomically persists one Annotation to
// annots/{nodeId}.json.
func WriteAnnotation(annotsDir string, a Annotation) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal annotation for %s: %w", a.NodeID, err)
	}
	dest := filepath.Join(annotsDir, a.NodeID+".json")
	if err := indexstore.AtomicWriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write annotation for %s: %w", a.NodeID, err)
	}
	return dest, nil
}
