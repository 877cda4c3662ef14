// Package indexstore defines the on-disk layout of a workspace's index
// data directory and provides the primitives every other component
// uses to read and write it safely: atomic file writes, a workspace
// lock, and gitignore bookkeeping.
package indexstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirName is the directory name created at the workspace root to
// hold all index state. DefaultLayout always uses this name; the
// ASTINDEX_DATA_DIR environment variable sets only the snapshot storage
// path, not this directory.
const DataDirName = ".astdb"

// Layout resolves the fixed sub-paths under a workspace's data
// directory.
type Layout struct {
	Root string // absolute path to the data directory, e.g. <workspace>/.astdb
}

// NewLayout returns a Layout rooted at dataDir.
func NewLayout(dataDir string) *Layout {
	return &Layout{Root: dataDir}
}

// DefaultLayout returns a Layout rooted at <workspaceRoot>/.astdb.
func DefaultLayout(workspaceRoot string) *Layout {
	return NewLayout(filepath.Join(workspaceRoot, DataDirName))
}

// ASTsDir holds one JSON file per parsed source file.
func (l *Layout) ASTsDir() string { return filepath.Join(l.Root, "asts") }

// AnnotsDir holds one JSON file per annotated source file.
func (l *Layout) AnnotsDir() string { return filepath.Join(l.Root, "annots") }

// VectorsDBPath is the metadata sidecar SQLite database.
func (l *Layout) VectorsDBPath() string { return filepath.Join(l.Root, "vectors.db") }

// HNSWIndexPath is the persisted HNSW graph.
func (l *Layout) HNSWIndexPath() string { return filepath.Join(l.Root, "hnsw.index") }

// ModelsDir caches downloaded embedding models.
func (l *Layout) ModelsDir() string { return filepath.Join(l.Root, "models") }

// SnapshotsDir holds packed index archives.
func (l *Layout) SnapshotsDir() string { return filepath.Join(l.Root, "snapshots") }

// WatchStatePath is the persisted file-watch state.
func (l *Layout) WatchStatePath() string { return filepath.Join(l.Root, "watch-state.json") }

// LockPath is the workspace-wide advisory lock file.
func (l *Layout) LockPath() string { return filepath.Join(l.Root, ".lock") }

// EnsureDirs creates every directory the layout defines, including the
// root itself, with mode 0o755.
func (l *Layout) EnsureDirs() error {
	dirs := []string{l.Root, l.ASTsDir(), l.AnnotsDir(), l.ModelsDir(), l.SnapshotsDir()}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Exists reports whether the data directory has already been
// initialized.
func (l *Layout) Exists() bool {
	info, err := os.Stat(l.Root)
	return err == nil && info.IsDir()
}
