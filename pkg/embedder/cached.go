package embedder

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultMemoCounters = 1e5
	defaultMemoMaxCost  = 64 << 20 // bytes of vector data
	defaultMemoBuffer   = 64
)

// Cached memoizes single-text embeddings of a remote provider. Repeated
// queries then skip the network round trip. Batch calls are passed through
// because they only happen during index builds.
type Cached struct {
	Embedder
	cache *ristretto.Cache
}

// NewCached wraps inner with a ristretto-backed memo.
func NewCached(inner Embedder) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: defaultMemoCounters,
		MaxCost:     defaultMemoMaxCost,
		BufferItems: defaultMemoBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding memo: %w", err)
	}
	return &Cached{Embedder: inner, cache: cache}, nil
}

// Embed returns the memoized vector for text, computing it on a miss.
// Callers must not modify the returned slice.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, int64(len(vec)*4+len(text)))
	return vec, nil
}

// Wait blocks until pending memo writes are visible.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close releases the memo.
func (c *Cached) Close() {
	c.cache.Close()
}
