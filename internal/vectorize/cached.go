package vectorize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 10000

// CachedEmbedder wraps another Embedder with an in-memory LRU cache
// keyed on a hash of the model name and input text, so repeated
// annotations (identical signatures/summaries across files) skip the
// backend round-trip entirely.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
// size<=0 uses DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (e *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(e.inner.ModelName() + "|" + text))
	return hex.EncodeToString(h[:])
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if v, ok := e.cache.Get(key); ok {
		return v, nil
	}

	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, v)
	return v, nil
}

func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := e.cacheKey(text)
		if v, ok := e.cache.Get(key); ok {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embeddings, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for i, emb := range embeddings {
		idx := missIdx[i]
		results[idx] = emb
		e.cache.Add(e.cacheKey(texts[idx]), emb)
	}

	return results, nil
}

func (e *CachedEmbedder) Dimensions() int             { return e.inner.Dimensions() }
func (e *CachedEmbedder) ModelName() string           { return e.inner.ModelName() }
func (e *CachedEmbedder) Available(ctx context.Context) bool { return e.inner.Available(ctx) }
func (e *CachedEmbedder) Close() error                { return e.inner.Close() }
func (e *CachedEmbedder) SetBatchIndex(idx int)       { e.inner.SetBatchIndex(idx) }
func (e *CachedEmbedder) SetFinalBatch(isFinal bool)  { e.inner.SetFinalBatch(isFinal) }

// Inner returns the wrapped embedder.
func (e *CachedEmbedder) Inner() Embedder { return e.inner }

// CacheLen reports the number of cached entries, for tests and metrics.
func (e *CachedEmbedder) CacheLen() int { return e.cache.Len() }
