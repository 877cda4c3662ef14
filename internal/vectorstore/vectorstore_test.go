package vectorstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, dims int) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig(dims, filepath.Join(dir, "vectors.db"), filepath.Join(dir, "hnsw.index"))
	cfg.AutoSave = false
	return cfg
}

func sampleVector(dims int, seed float32) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = seed + float32(i)*0.001
	}
	return v
}

func TestConfig_ValidateRejectsBadFields(t *testing.T) {
	base := DefaultConfig(8, "a.db", "a.idx")

	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero dims", func(c *Config) { c.Dimensions = 0 }},
		{"zero maxElements", func(c *Config) { c.MaxElements = 0 }},
		{"M too big", func(c *Config) { c.M = 101 }},
		{"efConstruction below M", func(c *Config) { c.EfConstruction = c.M - 1 }},
		{"empty storageFile", func(c *Config) { c.StorageFile = "" }},
		{"empty indexFile", func(c *Config) { c.IndexFile = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestHNSWStore_InsertAndSearch(t *testing.T) {
	cfg := testConfig(t, 8)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	ctx := context.Background()
	meta := VectorMetadata{Signature: "func f()", FilePath: "f.go", LastUpdated: time.Now()}
	require.NoError(t, store.InsertVector(ctx, "n1", sampleVector(8, 1.0), meta))
	require.NoError(t, store.InsertVector(ctx, "n2", sampleVector(8, 100.0), meta))

	results, err := store.SearchSimilar(ctx, sampleVector(8, 1.0), 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "n1", results[0].NodeID)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestHNSWStore_SearchOrderedDescendingWithTieBreak(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	ctx := context.Background()
	meta := VectorMetadata{Signature: "x", LastUpdated: time.Now()}
	vec := []float32{1, 0, 0, 0}
	require.NoError(t, store.InsertVector(ctx, "b", vec, meta))
	require.NoError(t, store.InsertVector(ctx, "a", vec, meta))

	results, err := store.SearchSimilar(ctx, vec, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Similarity, results[1].Similarity, 0.0001)
	assert.Equal(t, "a", results[0].NodeID)
}

func TestHNSWStore_InsertVector_RejectsEmptyNodeID(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	err = store.InsertVector(context.Background(), "", sampleVector(4, 1), VectorMetadata{Signature: "x"})
	assert.Error(t, err)
}

func TestHNSWStore_InsertVector_RejectsDimensionMismatch(t *testing.T) {
	cfg := testConfig(t, 768)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	err = store.InsertVector(context.Background(), "n1", []float32{1, 2, 3}, VectorMetadata{Signature: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 768, got 3")
}

func TestHNSWStore_InsertVector_RejectsMissingMetadata(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	err = store.InsertVector(context.Background(), "n1", sampleVector(4, 1), VectorMetadata{})
	assert.Error(t, err)
}

func TestHNSWStore_InsertVectors_PartialFailureCommitsSuccessfulPrefix(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	batch := []InsertItem{
		{NodeID: "ok1", Vector: sampleVector(4, 1), Metadata: VectorMetadata{Signature: "x", LastUpdated: time.Now()}},
		{NodeID: "", Vector: sampleVector(4, 2), Metadata: VectorMetadata{Signature: "x"}},
		{NodeID: "ok2", Vector: sampleVector(4, 3), Metadata: VectorMetadata{Signature: "x", LastUpdated: time.Now()}},
	}
	err = store.InsertVectors(context.Background(), batch)
	require.Error(t, err)

	stats := store.GetStats()
	assert.Equal(t, 2, stats.VectorCount)
}

func TestHNSWStore_SearchSimilar_RejectsBadArgs(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	ctx := context.Background()
	_, err = store.SearchSimilar(ctx, []float32{1, 2}, 1, 0)
	assert.Error(t, err)

	_, err = store.SearchSimilar(ctx, sampleVector(4, 1), 0, 0)
	assert.Error(t, err)

	_, err = store.SearchSimilar(ctx, sampleVector(4, 1), 1, -1)
	assert.Error(t, err)
}

func TestHNSWStore_UpdateVector(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	ctx := context.Background()
	meta := VectorMetadata{Signature: "x", LastUpdated: time.Now()}
	require.NoError(t, store.InsertVector(ctx, "n1", sampleVector(4, 1), meta))
	require.NoError(t, store.UpdateVector(ctx, "n1", sampleVector(4, 50)))

	results, err := store.SearchSimilar(ctx, sampleVector(4, 50), 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].NodeID)
}

func TestHNSWStore_DeleteVector(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	ctx := context.Background()
	meta := VectorMetadata{Signature: "x", LastUpdated: time.Now()}
	require.NoError(t, store.InsertVector(ctx, "n1", sampleVector(4, 1), meta))
	require.NoError(t, store.DeleteVector(ctx, "n1"))

	assert.Equal(t, 0, store.GetStats().VectorCount)
}

func TestHNSWStore_DeleteVector_RejectsEmptyID(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	assert.Error(t, store.DeleteVector(context.Background(), ""))
}

func TestHNSWStore_Persistence_SurvivesReopen(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	meta := VectorMetadata{Signature: "x", LastUpdated: time.Now()}
	require.NoError(t, store.InsertVector(ctx, "n1", sampleVector(4, 1), meta))
	require.NoError(t, store.Shutdown())

	reopened, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Shutdown() }()

	assert.Equal(t, 1, reopened.GetStats().VectorCount)
	results, err := reopened.SearchSimilar(ctx, sampleVector(4, 1), 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].NodeID)
}

func TestHNSWStore_Rebuild_RecomputesGraphFromSidecar(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	ctx := context.Background()
	meta := VectorMetadata{Signature: "x", LastUpdated: time.Now()}
	require.NoError(t, store.InsertVector(ctx, "n1", sampleVector(4, 1), meta))
	require.NoError(t, store.Rebuild(ctx))

	assert.Equal(t, 1, store.GetStats().VectorCount)
}

func TestHNSWStore_Shutdown_Idempotent(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, store.Shutdown())
	require.NoError(t, store.Shutdown())
}

func TestHNSWStore_OperationsAfterShutdownFail(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Shutdown())

	ctx := context.Background()
	err = store.InsertVector(ctx, "n1", sampleVector(4, 1), VectorMetadata{Signature: "x"})
	assert.Error(t, err)

	_, err = store.SearchSimilar(ctx, sampleVector(4, 1), 1, 0)
	assert.Error(t, err)
}

func TestHNSWStore_SearchEmptyStoreReturnsEmpty(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Shutdown() }()

	results, err := store.SearchSimilar(context.Background(), sampleVector(4, 1), 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOpenWithConsistencyCheck_RebuildsOnDivergence(t *testing.T) {
	cfg := testConfig(t, 4)
	store, err := Open(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	meta := VectorMetadata{Signature: "x", LastUpdated: time.Now()}
	require.NoError(t, store.InsertVector(ctx, "n1", sampleVector(4, 1), meta))
	require.NoError(t, store.Shutdown())

	// Write n2 to the sidecar and close it without saving the graph, so
	// the sidecar is one row ahead of the graph file on disk.
	diverged, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, diverged.InsertVector(ctx, "n2", sampleVector(4, 2), meta))
	require.NoError(t, diverged.sidecar.close())

	reopened, err := OpenWithConsistencyCheck(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Shutdown() }()

	sidecarCount, graphCount, consistent, err := reopened.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, consistent)
	assert.Equal(t, sidecarCount, graphCount)
	assert.Equal(t, 2, graphCount)
}

func TestMetrics_ObserveSearchAndInsert(t *testing.T) {
	m := NewMetrics()
	m.observeInsert(5*time.Millisecond, 3)
	m.observeSearch(10 * time.Millisecond)
	m.observeSearch(20 * time.Millisecond)

	assert.InDelta(t, 15*time.Millisecond, m.averageSearchTime(), float64(time.Millisecond))
}
