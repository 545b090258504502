// Package index holds the in-memory vector index over normalized chunk text.
// Search is exhaustive squared-L2 nearest neighbour; the active build is an
// immutable snapshot swapped atomically on rebuild or reload.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 100

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// Normalizer canonicalizes text before embedding.
type Normalizer interface {
	Normalize(text string) string
}

// Options configures an Index.
type Options struct {
	Dir       string // artifact directory for Persist/Load/Watch
	BatchSize int
	Logger    *slog.Logger
}

// Index is safe for concurrent Search while Build or Load swaps snapshots.
type Index struct {
	embedder   Embedder
	normalizer Normalizer
	dir        string
	batchSize  int
	logger     *slog.Logger

	current atomic.Pointer[snapshot]
}

// New creates an empty index.
func New(emb Embedder, norm Normalizer, opts Options) *Index {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	idx := &Index{
		embedder:   emb,
		normalizer: norm,
		dir:        opts.Dir,
		batchSize:  opts.BatchSize,
		logger:     opts.Logger,
	}
	idx.current.Store(idx.emptySnapshot())
	return idx
}

func (idx *Index) emptySnapshot() *snapshot {
	var dim int
	var model string
	if idx.embedder != nil {
		dim = idx.embedder.Dimension()
		model = idx.embedder.ModelInfo()
	}
	return newSnapshot(nil, nil, dim, model, 0)
}

// Build embeds the normalized text of every chunk and replaces the active
// snapshot. Chunks whose text normalizes to nothing are skipped, as are
// repeated ids. A failed build leaves the previous snapshot in place.
func (idx *Index) Build(ctx context.Context, chunks []Chunk) error {
	if idx.embedder == nil {
		return configErr("build", ErrNoEmbedder)
	}

	seen := make(map[string]struct{}, len(chunks))
	entries := make([]Entry, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.ID]; dup {
			idx.logger.Warn("skipping duplicate chunk id", "id", c.ID)
			continue
		}
		cleaned := idx.normalize(c.Text)
		if cleaned == "" {
			idx.logger.Warn("skipping chunk with no indexable text", "id", c.ID)
			continue
		}
		seen[c.ID] = struct{}{}
		entries = append(entries, Entry{ID: c.ID, Text: cleaned, Metadata: c.Metadata})
		texts = append(texts, cleaned)
	}

	dim := idx.embedder.Dimension()
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += idx.batchSize {
		end := min(start+idx.batchSize, len(texts))
		batch, err := idx.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return configErr("build", fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start))
		}
		for i, v := range batch {
			if len(v) != dim {
				return configErr("build", fmt.Errorf("%w: chunk %s has %d, want %d",
					ErrDimensionMismatch, entries[start+i].ID, len(v), dim))
			}
		}
		vectors = append(vectors, batch...)
		idx.logger.Debug("embedded batch", "from", start, "to", end, "total", len(texts))
	}

	snap := newSnapshot(vectors, entries, dim, idx.embedder.ModelInfo(), time.Now().UnixNano())
	idx.current.Store(snap)
	idx.logger.Info("index built", "chunks", len(entries), "skipped", len(chunks)-len(entries), "dimension", dim)
	return nil
}

// Search returns up to k nearest chunks to the normalized query, ascending by
// distance. An empty index or a query that normalizes to nothing yields an
// empty result.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	snap := idx.current.Load()
	if k <= 0 || len(snap.vectors) == 0 {
		return []SearchResult{}, nil
	}

	cleaned := idx.normalize(query)
	if cleaned == "" {
		return []SearchResult{}, nil
	}

	if idx.embedder == nil {
		return nil, configErr("search", ErrNoEmbedder)
	}
	vec, err := idx.embedder.Embed(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != snap.dim {
		return nil, configErr("search", fmt.Errorf("%w: query has %d, index has %d",
			ErrDimensionMismatch, len(vec), snap.dim))
	}

	return snap.search(vec, k), nil
}

// Count returns the number of indexed chunks.
func (idx *Index) Count() int {
	return len(idx.current.Load().entries)
}

// Info describes the active snapshot.
func (idx *Index) Info() Info {
	s := idx.current.Load()
	return Info{
		Count:     len(s.entries),
		Dimension: s.dim,
		ModelInfo: s.model,
		Version:   s.version,
	}
}

// Chunks returns the indexed entries in insertion order.
func (idx *Index) Chunks() []Entry {
	s := idx.current.Load()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (idx *Index) normalize(text string) string {
	if idx.normalizer == nil {
		return strings.TrimSpace(text)
	}
	return idx.normalizer.Normalize(text)
}
