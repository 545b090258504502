package embedder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptyText is returned by remote providers for blank input.
	ErrEmptyText = errors.New("cannot embed empty text")
	// ErrUnavailable means the configured provider cannot be constructed.
	ErrUnavailable = errors.New("embedding provider unavailable")
)

// Embedder turns text into fixed-dimension vectors. Implementations must be
// deterministic for identical input so index and query vectors stay
// comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

const bigramWeight = 0.5

// HashEmbedder is a local bag-of-words embedder using signed feature hashing
// over word unigrams and bigrams. Vectors are L2-normalized, so squared
// Euclidean distance between two of them lies in [0, 4].
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder with the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dim: dimension}
}

// Embed generates an embedding vector from text. Blank text yields the
// zero vector.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	acc := make([]float64, e.dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, w := range words {
		e.add(acc, w, 1)
		if i > 0 {
			e.add(acc, words[i-1]+" "+w, bigramWeight)
		}
	}

	if norm := floats.Norm(acc, 2); norm > 0 {
		floats.Scale(1/norm, acc)
	}

	vec := make([]float32, e.dim)
	for i, v := range acc {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (e *HashEmbedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

// EmbedBatch generates embeddings for multiple texts
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return fmt.Sprintf("hash-bow-v1-%d", e.dim)
}
