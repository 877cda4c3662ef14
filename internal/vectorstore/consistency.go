package vectorstore

import "context"

// CheckConsistency compares the sidecar's row count against the
// in-memory graph's valid-id count. A divergence means a crash left
// the two artifacts out of sync (sidecar ahead of the graph, or vice
// versa) and the caller should invoke Rebuild before trusting search
// results. Grounded on the teacher's internal/index/consistency.go
// cross-store reconciliation idiom (there comparing BM25/vector/
// metadata id sets; here comparing sidecar rows against graph nodes).
func (s *HNSWStore) CheckConsistency(ctx context.Context) (sidecarCount, graphCount int, consistent bool, err error) {
	sidecarCount, err = s.sidecar.rowCount(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	graphCount = s.graph.count()
	return sidecarCount, graphCount, sidecarCount == graphCount, nil
}

// OpenWithConsistencyCheck opens the store and, if the sidecar and
// graph row counts diverge, rolls forward by rebuilding the graph from
// the sidecar before returning — spec's "roll forward" policy for the
// divergence left behind by a crash between a sidecar write and its
// paired graph insert.
func OpenWithConsistencyCheck(ctx context.Context, cfg Config, metrics *Metrics) (*HNSWStore, error) {
	store, err := Open(cfg, metrics)
	if err != nil {
		return nil, err
	}

	_, _, consistent, err := store.CheckConsistency(ctx)
	if err != nil {
		_ = store.Shutdown()
		return nil, err
	}
	if !consistent {
		if err := store.Rebuild(ctx); err != nil {
			_ = store.Shutdown()
			return nil, err
		}
	}

	return store, nil
}
