// Package vectorstore persists node embeddings in an HNSW graph backed
// by a SQLite metadata sidecar, and exposes approximate nearest-neighbor
// search over them.
package vectorstore

import (
	"context"
	"fmt"
	"time"
)

// Space is the distance metric the graph scores vectors under.
type Space string

const (
	SpaceCosine Space = "cosine"
	SpaceL2     Space = "l2"
	SpaceIP     Space = "ip"
)

// Config configures a Store. Initialization validates every field:
// Dimensions > 0, MaxElements > 0, 1 <= M <= 100, EfConstruction >= M,
// non-empty StorageFile/IndexFile, SaveInterval > 0 when AutoSave is set.
type Config struct {
	Dimensions     int
	MaxElements    int
	M              int
	EfConstruction int
	Space          Space
	StorageFile    string
	IndexFile      string
	AutoSave       bool
	SaveInterval   time.Duration
}

// Validate checks the configuration per spec.md §4.C7's initialization
// contract.
func (c Config) Validate() error {
	if c.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", c.Dimensions)
	}
	if c.MaxElements <= 0 {
		return fmt.Errorf("maxElements must be positive, got %d", c.MaxElements)
	}
	if c.M <= 0 || c.M > 100 {
		return fmt.Errorf("M must be in [1,100], got %d", c.M)
	}
	if c.EfConstruction <= 0 {
		return fmt.Errorf("efConstruction must be positive, got %d", c.EfConstruction)
	}
	if c.EfConstruction < c.M {
		return fmt.Errorf("efConstruction (%d) must be >= M (%d)", c.EfConstruction, c.M)
	}
	if c.StorageFile == "" {
		return fmt.Errorf("storageFile must not be empty")
	}
	if c.IndexFile == "" {
		return fmt.Errorf("indexFile must not be empty")
	}
	if c.AutoSave && c.SaveInterval <= 0 {
		return fmt.Errorf("saveInterval must be positive when autoSave is enabled")
	}
	return nil
}

// DefaultConfig returns the spec's reference defaults for the given
// dimensionality and file pair.
func DefaultConfig(dimensions int, storageFile, indexFile string) Config {
	return Config{
		Dimensions:     dimensions,
		MaxElements:    1_000_000,
		M:              32,
		EfConstruction: 128,
		Space:          SpaceCosine,
		StorageFile:    storageFile,
		IndexFile:      indexFile,
		AutoSave:       true,
		SaveInterval:   30 * time.Second,
	}
}

// VectorMetadata is stored alongside each vector in the sidecar.
type VectorMetadata struct {
	Signature   string    `json:"signature"`
	Summary     string    `json:"summary"`
	FileID      string    `json:"fileId"`
	FilePath    string    `json:"filePath"`
	LineNumber  int       `json:"lineNumber"`
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SearchResult is one hit from Store.SearchSimilar, ordered by
// descending Similarity with ties broken by ascending NodeID.
type SearchResult struct {
	NodeID     string
	Similarity float32
	Metadata   VectorMetadata
}

// Status reports the store's operational health.
type Status string

const (
	StatusReady    Status = "ready"
	StatusBuilding Status = "building"
	StatusError    Status = "error"
)

// Stats mirrors spec.md §4.C7's getStats() contract.
type Stats struct {
	VectorCount       int
	MemoryUsage       int64
	IndexFileSize     int64
	StorageFileSize   int64
	LastSaved         time.Time
	BuildTime         time.Duration
	AverageSearchTime time.Duration
	Status            Status
	ErrorMessage      string
}

// InsertItem is one element of a Store.InsertVectors batch.
type InsertItem struct {
	NodeID   string
	Vector   []float32
	Metadata VectorMetadata
}

// ErrDimensionMismatch indicates a vector's width didn't match the
// store's configured Dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimensions mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Store is the persistent vector index contract.
type Store interface {
	InsertVector(ctx context.Context, nodeID string, vector []float32, metadata VectorMetadata) error
	InsertVectors(ctx context.Context, batch []InsertItem) error
	SearchSimilar(ctx context.Context, query []float32, k int, ef int) ([]SearchResult, error)
	UpdateVector(ctx context.Context, nodeID string, vector []float32) error
	DeleteVector(ctx context.Context, nodeID string) error
	Rebuild(ctx context.Context) error
	GetStats() Stats
	Shutdown() error
}
