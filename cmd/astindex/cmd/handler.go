package cmd

import (
	"context"

	"github.com/weftcode/astindex/internal/queryserver"
	"github.com/weftcode/astindex/internal/vectorstore"
)

// indexHandler implements queryserver.Handler against a live
// environment's embedder and vector store.
type indexHandler struct {
	env *environment
}

func newIndexHandler(env *environment) *indexHandler {
	return &indexHandler{env: env}
}

func (h *indexHandler) IndexStatus(_ context.Context) (queryserver.IndexStatusResult, error) {
	stats := h.env.Store.GetStats()
	return queryserver.IndexStatusResult{
		VectorCount: stats.VectorCount,
		LastSaved:   stats.LastSaved.Format("2006-01-02T15:04:05Z07:00"),
		Status:      string(stats.Status),
	}, nil
}

func (h *indexHandler) ListTools(_ context.Context) ([]queryserver.ToolDescriptor, error) {
	return []queryserver.ToolDescriptor{
		{Name: queryserver.MethodIndexStatus, Description: "Report vector store health and size"},
		{Name: queryserver.MethodSearch, Description: "Nearest-neighbor search over indexed code nodes"},
	}, nil
}

func (h *indexHandler) Search(ctx context.Context, params queryserver.SearchParams) ([]queryserver.QueryResult, error) {
	vector := params.QueryVector
	if len(vector) == 0 {
		v, err := h.env.Embedder.Embed(ctx, params.Query)
		if err != nil {
			return nil, err
		}
		vector = v
	}

	hits, err := h.env.Store.SearchSimilar(ctx, vector, params.K, params.Ef)
	if err != nil {
		return nil, err
	}

	return toQueryResults(hits), nil
}

func toQueryResults(hits []vectorstore.SearchResult) []queryserver.QueryResult {
	out := make([]queryserver.QueryResult, len(hits))
	for i, h := range hits {
		out[i] = queryserver.QueryResult{
			NodeID:     h.NodeID,
			Similarity: h.Similarity,
			FilePath:   h.Metadata.FilePath,
			LineNumber: h.Metadata.LineNumber,
			Summary:    h.Metadata.Summary,
			Metadata:   map[string]string{"signature": h.Metadata.Signature},
		}
	}
	return out
}
