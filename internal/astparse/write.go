package astparse

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/weftcode/astindex/internal/indexstore"
)

// WriteResult atomically persists a FileResult as JSON under astsDir,
// named after the source file's basename and the first 12 hex
// characters of its content hash so repeated parses of an unchanged
// file produce the same path.
func WriteResult(astsDir string, res FileResult) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ast for %s: %w", res.Path, err)
	}

	hash := res.ContentSHA
	if len(hash) > 12 {
		hash = hash[:12]
	}
	base := strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path))
	name := fmt.Sprintf("%s_%s.json", base, hash)
	dest := filepath.Join(astsDir, name)

	if err := indexstore.AtomicWriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write ast for %s: %w", res.Path, err)
	}
	return dest, nil
}
