package index

import (
	"sort"

	"github.com/viterin/vek/vek32"
)

// squaredNorm returns v·v.
func squaredNorm(v []float32) float32 {
	return vek32.Dot(v, v)
}

// SquaredL2 computes the squared Euclidean distance between two vectors
// of equal length using ||a||² + ||b||² - 2a·b. Rounding can push the
// result slightly below zero, so it is clamped.
func SquaredL2(a, b []float32, normA, normB float32) float32 {
	d := normA + normB - 2*vek32.Dot(a, b)
	if d < 0 {
		return 0
	}
	return d
}

// search returns the k nearest rows to query, ascending by distance.
// Equal distances keep insertion order.
func (s *snapshot) search(query []float32, k int) []SearchResult {
	if k <= 0 || len(s.vectors) == 0 {
		return nil
	}

	type candidate struct {
		row  int
		dist float32
	}

	qn := squaredNorm(query)
	candidates := make([]candidate, len(s.vectors))
	for i, v := range s.vectors {
		candidates[i] = candidate{row: i, dist: SquaredL2(query, v, qn, s.norms[i])}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}

	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		e := s.entries[c.row]
		results[i] = SearchResult{
			ChunkID:  e.ID,
			Score:    c.dist,
			Text:     e.Text,
			Metadata: e.Metadata,
		}
	}
	return results
}

func newSnapshot(vectors [][]float32, entries []Entry, dim int, model string, version int64) *snapshot {
	norms := make([]float32, len(vectors))
	for i, v := range vectors {
		norms[i] = squaredNorm(v)
	}
	return &snapshot{
		vectors: vectors,
		norms:   norms,
		entries: entries,
		dim:     dim,
		model:   model,
		version: version,
	}
}
