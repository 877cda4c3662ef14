package vectorstore

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// graphStore wraps a coder/hnsw graph with the string-id <-> uint64-key
// mapping the library's Graph[uint64] requires, and lazy deletion to
// dodge the library's delete-last-node bug (we never call graph.Delete,
// only drop the id mapping so the node stops surfacing in results).
type graphStore struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	config  Config
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	closed  bool
}

type graphMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  Config
}

func newGraphStore(cfg Config) *graphStore {
	graph := hnsw.NewGraph[uint64]()

	switch cfg.Space {
	case SpaceL2:
		graph.Distance = hnsw.EuclideanDistance
	case SpaceIP:
		graph.Distance = innerProductDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}

	graph.M = cfg.M
	graph.EfSearch = cfg.EfConstruction
	graph.Ml = 0.25

	return &graphStore{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

func innerProductDistance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return -dot
}

func (g *graphStore) add(id string, vector []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addLocked(id, vector)
}

func (g *graphStore) addLocked(id string, vector []float32) {
	if existing, ok := g.idMap[id]; ok {
		delete(g.keyMap, existing)
		delete(g.idMap, id)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	if g.config.Space == SpaceCosine {
		normalizeInPlace(vec)
	}

	key := g.nextKey
	g.nextKey++
	g.graph.Add(hnsw.MakeNode(key, vec))
	g.idMap[id] = key
	g.keyMap[key] = id
}

func (g *graphStore) remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if key, ok := g.idMap[id]; ok {
		delete(g.keyMap, key)
		delete(g.idMap, id)
	}
}

// search runs one nearest-neighbor query. The coder/hnsw Graph has no
// per-call ef parameter — EfSearch is a field on the shared Graph — so
// an ef override and the Search call that consumes it must execute
// under the same exclusive lock. Taking mu.Lock (not RLock) here is
// what keeps two concurrent callers with different ef values from
// racing: one request's EfSearch write can no longer be clobbered by
// another's before its own Search call runs.
func (g *graphStore) search(query []float32, k int, ef int) []SearchResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.graph.Len() == 0 {
		return nil
	}

	if ef > 0 {
		g.graph.EfSearch = ef
	}

	q := make([]float32, len(query))
	copy(q, query)
	if g.config.Space == SpaceCosine {
		normalizeInPlace(q)
	}

	nodes := g.graph.Search(q, k)
	results := make([]SearchResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := g.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := g.graph.Distance(q, node.Value)
		results = append(results, SearchResult{NodeID: id, Similarity: distanceToSimilarity(distance, g.config.Space)})
	}
	return results
}

func (g *graphStore) count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.idMap)
}

func (g *graphStore) save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := g.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}

	return g.saveMetadata(path + ".meta")
}

func (g *graphStore) saveMetadata(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create metadata temp file: %w", err)
	}

	meta := graphMetadata{IDMap: g.idMap, NextKey: g.nextKey, Config: g.config}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (g *graphStore) load(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.loadMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := bufio.NewReader(f)
	if err := g.graph.Import(reader); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func (g *graphStore) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var meta graphMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	g.idMap = meta.IDMap
	g.nextKey = meta.NextKey
	g.config = meta.Config
	g.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range g.idMap {
		g.keyMap[key] = id
	}
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func distanceToSimilarity(distance float32, space Space) float32 {
	switch space {
	case SpaceL2:
		return 1.0 / (1.0 + distance)
	case SpaceIP:
		return -distance
	default:
		return 1.0 - distance/2.0
	}
}

// HNSWStore is the default Store implementation: a coder/hnsw ANN
// graph over a sqliteSidecar metadata table, single-writer/multi-reader,
// auto-saved on an interval when dirty.
type HNSWStore struct {
	mu      sync.RWMutex
	config  Config
	graph   *graphStore
	sidecar *sqliteSidecar
	metrics *Metrics

	closed    bool
	dirty     bool
	lastSaved time.Time
	buildTime time.Duration
	status    Status
	errMsg    string

	stopAutoSave chan struct{}
	autoSaveDone chan struct{}
}

var _ Store = (*HNSWStore)(nil)

// Open creates or loads an HNSWStore at the paths named in cfg.
func Open(cfg Config, metrics *Metrics) (*HNSWStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vector store config: %w", err)
	}

	start := time.Now()
	sidecar, err := openSidecar(cfg.StorageFile)
	if err != nil {
		return nil, fmt.Errorf("open metadata sidecar: %w", err)
	}

	graph := newGraphStore(cfg)
	if _, statErr := os.Stat(cfg.IndexFile); statErr == nil {
		if err := graph.load(cfg.IndexFile); err != nil {
			slog.Warn("vector_index_load_failed_rebuilding", slog.String("error", err.Error()))
			if rebuildErr := rebuildFromSidecar(graph, sidecar); rebuildErr != nil {
				_ = sidecar.close()
				return nil, fmt.Errorf("rebuild graph from sidecar: %w", rebuildErr)
			}
		}
	} else {
		// No graph snapshot yet (or it was lost to a crash between the
		// sidecar write and the graph insert) — the sidecar is the
		// source of truth, so rebuild from it unconditionally.
		if rebuildErr := rebuildFromSidecar(graph, sidecar); rebuildErr != nil {
			_ = sidecar.close()
			return nil, fmt.Errorf("rebuild graph from sidecar: %w", rebuildErr)
		}
	}

	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &HNSWStore{
		config:    cfg,
		graph:     graph,
		sidecar:   sidecar,
		metrics:   metrics,
		status:    StatusReady,
		buildTime: time.Since(start),
		lastSaved: time.Now(),
	}

	if cfg.AutoSave {
		s.stopAutoSave = make(chan struct{})
		s.autoSaveDone = make(chan struct{})
		go s.autoSaveLoop()
	}

	return s, nil
}

func rebuildFromSidecar(graph *graphStore, sidecar *sqliteSidecar) error {
	entries, err := sidecar.all(context.Background())
	if err != nil {
		return err
	}
	graph.mu.Lock()
	graph.idMap = make(map[string]uint64)
	graph.keyMap = make(map[uint64]string)
	graph.nextKey = 0
	for _, e := range entries {
		graph.addLocked(e.NodeID, e.Vector)
	}
	graph.mu.Unlock()
	return nil
}

func (s *HNSWStore) autoSaveLoop() {
	defer close(s.autoSaveDone)
	ticker := time.NewTicker(s.config.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			dirty := s.dirty
			s.mu.Unlock()
			if dirty {
				if err := s.flush(); err != nil {
					slog.Warn("vector_store_autosave_failed", slog.String("error", err.Error()))
				}
			}
		case <-s.stopAutoSave:
			return
		}
	}
}

func (s *HNSWStore) InsertVector(ctx context.Context, nodeID string, vector []float32, metadata VectorMetadata) error {
	return s.InsertVectors(ctx, []InsertItem{{NodeID: nodeID, Vector: vector, Metadata: metadata}})
}

func (s *HNSWStore) InsertVectors(ctx context.Context, batch []InsertItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	start := time.Now()
	var errs []error
	inserted := 0

	for _, item := range batch {
		if err := s.validateInsert(item); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.NodeID, err))
			continue
		}
		// Sidecar write precedes graph insert: a crash between the two
		// is repaired at next Open by rebuilding the graph from the
		// sidecar, so the sidecar is always the durable source of truth.
		if err := s.sidecar.put(ctx, item.NodeID, item.Vector, item.Metadata); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.NodeID, err))
			continue
		}
		s.graph.add(item.NodeID, item.Vector)
		inserted++
	}

	if inserted > 0 {
		s.dirty = true
	}
	s.metrics.observeInsert(time.Since(start), inserted)

	if len(errs) > 0 {
		return fmt.Errorf("insert vectors: %d of %d failed: %w", len(errs), len(batch), joinErrs(errs))
	}
	return nil
}

func (s *HNSWStore) validateInsert(item InsertItem) error {
	if item.NodeID == "" {
		return fmt.Errorf("nodeId must not be empty")
	}
	if len(item.Vector) == 0 {
		return fmt.Errorf("vector must not be empty")
	}
	if len(item.Vector) != s.config.Dimensions {
		return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(item.Vector)}
	}
	if item.Metadata == (VectorMetadata{}) {
		return fmt.Errorf("metadata must not be empty")
	}
	return nil
}

func (s *HNSWStore) SearchSimilar(ctx context.Context, query []float32, k int, ef int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if ef != 0 && ef <= 0 {
		return nil, fmt.Errorf("ef must be positive when provided, got %d", ef)
	}

	start := time.Now()
	results := s.graph.search(query, k, ef)

	metas := make(map[string]VectorMetadata, len(results))
	for _, r := range results {
		if meta, ok := s.sidecar.get(ctx, r.NodeID); ok {
			metas[r.NodeID] = meta
		}
	}
	for i := range results {
		results[i].Metadata = metas[results[i].NodeID]
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].NodeID < results[j].NodeID
	})

	if len(results) > k {
		results = results[:k]
	}

	s.metrics.observeSearch(time.Since(start))
	return results, nil
}

func (s *HNSWStore) UpdateVector(ctx context.Context, nodeID string, vector []float32) error {
	if nodeID == "" {
		return fmt.Errorf("nodeId must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if len(vector) != s.config.Dimensions {
		return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(vector)}
	}

	meta, ok := s.sidecar.get(ctx, nodeID)
	if !ok {
		return fmt.Errorf("node %q not found", nodeID)
	}
	if err := s.sidecar.put(ctx, nodeID, vector, meta); err != nil {
		return fmt.Errorf("update sidecar: %w", err)
	}
	s.graph.add(nodeID, vector)
	s.dirty = true
	return nil
}

func (s *HNSWStore) DeleteVector(ctx context.Context, nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("nodeId must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if err := s.sidecar.delete(ctx, nodeID); err != nil {
		return fmt.Errorf("delete from sidecar: %w", err)
	}
	s.graph.remove(nodeID)
	s.dirty = true
	return nil
}

func (s *HNSWStore) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	s.status = StatusBuilding
	newGraph := newGraphStore(s.config)
	if err := rebuildFromSidecar(newGraph, s.sidecar); err != nil {
		s.status = StatusError
		s.errMsg = err.Error()
		return fmt.Errorf("rebuild graph: %w", err)
	}

	tmpIndexFile := s.config.IndexFile + ".rebuild"
	if err := newGraph.save(tmpIndexFile); err != nil {
		s.status = StatusError
		s.errMsg = err.Error()
		return fmt.Errorf("save rebuilt graph: %w", err)
	}
	if err := os.Rename(tmpIndexFile, s.config.IndexFile); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	_ = os.Rename(tmpIndexFile+".meta", s.config.IndexFile+".meta")

	s.graph = newGraph
	s.status = StatusReady
	s.errMsg = ""
	s.dirty = false
	s.lastSaved = time.Now()
	return nil
}

func (s *HNSWStore) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storageSize, _ := fileSize(s.config.StorageFile)
	indexSize, _ := fileSize(s.config.IndexFile)

	return Stats{
		VectorCount:       s.graph.count(),
		MemoryUsage:       int64(s.graph.count()) * int64(s.config.Dimensions) * 4,
		IndexFileSize:     indexSize,
		StorageFileSize:   storageSize,
		LastSaved:         s.lastSaved,
		BuildTime:         s.buildTime,
		AverageSearchTime: s.metrics.averageSearchTime(),
		Status:            s.status,
		ErrorMessage:      s.errMsg,
	}
}

func (s *HNSWStore) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *HNSWStore) flushLocked() error {
	if !s.dirty {
		return nil
	}
	if err := s.graph.save(s.config.IndexFile); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	s.dirty = false
	s.lastSaved = time.Now()
	return nil
}

// Shutdown flushes pending writes and releases resources. Safe to call
// more than once.
func (s *HNSWStore) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.stopAutoSave != nil {
		close(s.stopAutoSave)
		<-s.autoSaveDone
	}

	if err := s.flush(); err != nil {
		return err
	}
	return s.sidecar.close()
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
