package embedder

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqDist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i] - b[i])
		s += d * d
	}
	return s
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "prazo matrícula março")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "prazo matrícula março")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashEmbedder_EmptyIsZero(t *testing.T) {
	e := NewHashEmbedder(16)

	v, err := e.Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestHashEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := NewHashEmbedder(512)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "prazo matrícula")
	near, _ := e.Embed(ctx, "prazo matrícula março")
	far, _ := e.Embed(ctx, "horário biblioteca sábado")

	assert.Less(t, sqDist(q, near), sqDist(q, far))
}

func TestHashEmbedder_Batch(t *testing.T) {
	e := NewHashEmbedder(32)
	ctx := context.Background()

	batch, err := e.EmbedBatch(ctx, []string{"um", "dois"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	single, _ := e.Embed(ctx, "dois")
	assert.Equal(t, single, batch[1])
	assert.Equal(t, 32, e.Dimension())
	assert.Equal(t, "hash-bow-v1-32", e.ModelInfo())
}

type countingEmbedder struct {
	*HashEmbedder
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.HashEmbedder.Embed(ctx, text)
}

func TestCached_MemoizesQueries(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	c, err := NewCached(inner)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	first, err := c.Embed(ctx, "boleto")
	require.NoError(t, err)
	c.Wait()

	second, err := c.Embed(ctx, "boleto")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, inner.ModelInfo(), c.ModelInfo())
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, Options{Provider: ProviderHash, Dimension: 128})
	require.NoError(t, err)
	assert.Equal(t, 128, e.Dimension())

	_, err = New(ctx, Options{Provider: "word2vec"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(ctx, Options{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(ctx, Options{Provider: ProviderGemini})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	l2normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	l2normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
