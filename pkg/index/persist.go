package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Artifact file names inside the index directory.
const (
	VectorsFile = "vectors.gob"
	MappingFile = "mapping.gob"
)

// Persist writes the active snapshot as a vector blob plus an id/metadata
// mapping. Each file is written to a temporary name and renamed into place.
// An empty index is not written.
func (idx *Index) Persist() error {
	if idx.dir == "" {
		return configErr("persist", errors.New("no index directory configured"))
	}

	snap := idx.current.Load()
	if len(snap.entries) == 0 {
		idx.logger.Warn("index is empty, nothing to persist", "dir", idx.dir)
		return nil
	}

	if err := os.MkdirAll(idx.dir, 0755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	data := make([]float32, 0, len(snap.vectors)*snap.dim)
	for _, v := range snap.vectors {
		data = append(data, v...)
	}
	vf := vectorsFile{
		Version:   snap.version,
		ModelInfo: snap.model,
		Dimension: snap.dim,
		Rows:      len(snap.vectors),
		Data:      data,
	}
	mf := mappingFile{
		Version:   snap.version,
		ModelInfo: snap.model,
		Entries:   snap.entries,
	}

	// Mapping first: a watcher reloads on the vectors file, which then
	// finds a matching mapping already in place.
	if err := writeGob(filepath.Join(idx.dir, MappingFile), &mf); err != nil {
		return fmt.Errorf("writing mapping: %w", err)
	}
	if err := writeGob(filepath.Join(idx.dir, VectorsFile), &vf); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}

	idx.logger.Info("index persisted", "dir", idx.dir, "chunks", len(snap.entries), "version", snap.version)
	return nil
}

// Load replaces the active snapshot with the persisted artifact pair. It
// returns false with a nil error when no artifacts exist. Artifacts that do
// not agree with each other or with the embedder yield a ConfigurationError
// and leave the active snapshot untouched.
func (idx *Index) Load() (bool, error) {
	snap, err := idx.readArtifacts()
	if errors.Is(err, ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	idx.current.Store(snap)
	idx.logger.Info("index loaded", "dir", idx.dir, "chunks", len(snap.entries), "version", snap.version)
	return true, nil
}

func (idx *Index) readArtifacts() (*snapshot, error) {
	if idx.dir == "" {
		return nil, ErrIndexNotFound
	}

	var vf vectorsFile
	if err := readGob(filepath.Join(idx.dir, VectorsFile), &vf); err != nil {
		return nil, err
	}
	var mf mappingFile
	if err := readGob(filepath.Join(idx.dir, MappingFile), &mf); err != nil {
		return nil, err
	}

	switch {
	case vf.Version != mf.Version:
		return nil, configErr("load", fmt.Errorf("%w: %w: %d and %d", ErrArtifactMismatch, errVersionSkew, vf.Version, mf.Version))
	case vf.Rows != len(mf.Entries):
		return nil, configErr("load", fmt.Errorf("%w: %d vectors for %d entries", ErrArtifactMismatch, vf.Rows, len(mf.Entries)))
	case vf.Dimension <= 0 || len(vf.Data) != vf.Rows*vf.Dimension:
		return nil, configErr("load", fmt.Errorf("%w: %d values for %d rows of dimension %d",
			ErrArtifactMismatch, len(vf.Data), vf.Rows, vf.Dimension))
	}

	if idx.embedder != nil {
		if dim := idx.embedder.Dimension(); dim != vf.Dimension {
			return nil, configErr("load", fmt.Errorf("%w: persisted %d, embedder %d", ErrDimensionMismatch, vf.Dimension, dim))
		}
		if model := idx.embedder.ModelInfo(); model != vf.ModelInfo {
			return nil, configErr("load", fmt.Errorf("index built with %q, embedder is %q", vf.ModelInfo, model))
		}
	}

	vectors := make([][]float32, vf.Rows)
	for i := range vectors {
		vectors[i] = vf.Data[i*vf.Dimension : (i+1)*vf.Dimension : (i+1)*vf.Dimension]
	}
	return newSnapshot(vectors, mf.Entries, vf.Dimension, vf.ModelInfo, vf.Version), nil
}

func writeGob(path string, v any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrIndexNotFound
		}
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return configErr("load", fmt.Errorf("decoding %s: %w", filepath.Base(path), err))
	}
	return nil
}
