package encoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// FallbackEmbedder tries a primary embedder and falls back to a secondary
// one when the primary fails.
//
// Empty-input errors are not retried on the fallback: they would fail there
// too, and the caller needs to see ErrEmptyInput.
type FallbackEmbedder struct {
	primary  Embedder
	fallback Embedder
	logger   *zap.Logger
}

// NewFallbackEmbedder composes a primary embedder with a fallback. Both must
// agree on dimensions. Pass nil for logger to disable logging.
func NewFallbackEmbedder(primary, fallback Embedder, logger *zap.Logger) (*FallbackEmbedder, error) {
	if primary.Dimensions() != fallback.Dimensions() {
		return nil, fmt.Errorf("NewFallbackEmbedder: dimensions differ: primary %d, fallback %d",
			primary.Dimensions(), fallback.Dimensions())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackEmbedder{primary: primary, fallback: fallback, logger: logger}, nil
}

// Embed tries the primary embedder first.
func (e *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	embedding, err := e.primary.Embed(ctx, text)
	if err == nil {
		return embedding, nil
	}
	if errors.Is(err, ErrEmptyInput) {
		return nil, err
	}

	e.logger.Warn("primary embedder failed, using fallback",
		zap.Error(err))
	return e.fallback.Embed(ctx, text)
}

// Dimensions returns the shared embedding width.
func (e *FallbackEmbedder) Dimensions() int {
	return e.primary.Dimensions()
}

// CachedEmbedder memoizes an inner embedder, keyed by exact input text.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder wraps an embedder with a ristretto cache holding up to
// maxEntries embeddings.
func NewCachedEmbedder(inner Embedder, maxEntries int64) (*CachedEmbedder, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("NewCachedEmbedder: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns a cached embedding when the exact text was seen before,
// otherwise delegates to the inner embedder and caches the result.
//
// Returned slices are cached and shared; callers must not mutate them.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached.([]float64), nil
	}

	embedding, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, embedding, 1)
	return embedding, nil
}

// Dimensions returns the inner embedder's width.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache's resources.
func (e *CachedEmbedder) Close() {
	e.cache.Close()
}
