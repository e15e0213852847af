package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// VectorCache stores embeddings by key. Get reports a miss with ok == false.
type VectorCache interface {
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CachedEmbedder serves repeated texts from a VectorCache. Cache failures
// are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	next   Embedder
	cache  VectorCache
	model  string
	logger *slog.Logger
}

// NewCachedEmbedder wraps next. model namespaces the cache keys so vectors
// from different embedding models never mix.
func NewCachedEmbedder(next Embedder, cache VectorCache, model string, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{next: next, cache: cache, model: model, logger: logger}
}

// CacheKey returns the cache key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		vec, ok, err := c.cache.Get(ctx, CacheKey(c.model, t))
		if err != nil {
			c.logger.Warn("embedding cache get", "error", err)
		}
		if ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := c.cache.Set(ctx, CacheKey(c.model, missTexts[j]), vecs[j]); err != nil {
			c.logger.Warn("embedding cache set", "error", err)
		}
	}
	return out, nil
}
