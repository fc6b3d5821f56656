// Package embedcache memoizes query embeddings in process memory.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Embedder is the embedding provider being wrapped.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Wrap returns next unchanged when size or ttl is not positive.
func Wrap(next Embedder, model string, size int, ttl time.Duration) Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEmbedder{
		next:  next,
		model: model,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  Embedder
	model string
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(l.model, text)
	if cached, ok := l.cache.Get(key); ok {
		logging.FromContext(ctx).Debug("embedding cache hit", zap.String("model", l.model))
		return clone(cached), nil
	}

	res, err := l.next.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, clone(res))
	return res, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

func clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
