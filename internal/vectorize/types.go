// Package vectorize maps annotated ASTNode text to float vectors using
// a configurable embedding backend.
package vectorize

import (
	"context"
	"math"
	"time"
)

// Embedding size and batching constants.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 32

	// DefaultWarmTimeout applies once a model is already loaded.
	DefaultWarmTimeout = 120 * time.Second
	// DefaultColdTimeout applies to the first call, when the backing
	// model may still need to load.
	DefaultColdTimeout = 180 * time.Second
	// ModelUnloadThreshold is how long a backend is assumed to stay
	// warm after its last successful call.
	ModelUnloadThreshold = 5 * time.Minute

	DefaultMaxRetries = 3
)

// Thermal-aware batching constants: embedding backends under sustained
// load (e.g. a GPU processing thousands of batches back to back) can
// slow down as they run, so later batches and later retries get a
// longer timeout budget.
const (
	DefaultInterBatchDelay        = 0 * time.Millisecond
	MaxInterBatchDelay            = 5 * time.Second
	DefaultTimeoutProgression     = 1.0
	MaxTimeoutProgression         = 3.0
	DefaultRetryTimeoutMultiplier = 1.0
	MaxRetryTimeoutMultiplier     = 2.0
)

// DefaultDimensions is the vector width used when a backend can't
// report its own and no override is configured.
const DefaultDimensions = 768

// Space selects the distance metric a vector index scores vectors
// under. Embedders L2-normalize their output whatever the Space; no
// embedder reads a Space value.
type Space string

const (
	SpaceCosine Space = "cosine"
	SpaceL2     Space = "l2"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error

	// SetBatchIndex records how far into a batch run this embedder is,
	// used to scale timeouts for sustained-load thermal throttling.
	SetBatchIndex(idx int)
	// SetFinalBatch marks the embedder as processing the last batch of
	// a run, applying an extra timeout boost for peak throttling.
	SetFinalBatch(isFinal bool)
}

// normalizeVector scales v to unit length, leaving zero vectors as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
