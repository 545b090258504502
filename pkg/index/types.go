package index

// Chunk is a retrievable unit of source text as produced by ingestion.
type Chunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Entry is one row of the id/metadata mapping. Its position matches the row
// of its vector.
type Entry struct {
	ID       string
	Text     string // normalized text
	Metadata map[string]string
}

// SearchResult represents a single search result with its distance score.
// Lower scores are more similar.
type SearchResult struct {
	ChunkID  string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Info describes the active index snapshot.
type Info struct {
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
	ModelInfo string `json:"model_info"`
	Version   int64  `json:"version"`
}

// snapshot is an immutable build of the index. Searches read one snapshot
// for their whole duration; rebuilds and reloads swap in a new one.
type snapshot struct {
	vectors [][]float32 // chunk[i] <-> vectors[i]
	norms   []float32   // squared L2 norm of vectors[i]
	entries []Entry
	dim     int
	model   string
	version int64
}

// vectorsFile is the on-disk vector blob.
type vectorsFile struct {
	Version   int64
	ModelInfo string
	Dimension int
	Rows      int
	Data      []float32 // row-major, Rows*Dimension values
}

// mappingFile is the on-disk id/metadata blob. Version must match the
// vectorsFile written alongside it.
type mappingFile struct {
	Version   int64
	ModelInfo string
	Entries   []Entry
}
