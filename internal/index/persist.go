// ABOUTME: Persistence for the vector index as a matched pair of artifacts
// ABOUTME: index.gob holds the vectors, chunks.json holds the co-indexed chunk list
package index

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/harper/docqa/internal/models"
)

const (
	// IndexFileName is the vector blob artifact
	IndexFileName = "index.gob"
	// ChunksFileName is the chunk list artifact
	ChunksFileName = "chunks.json"
)

// ErrInconsistentArtifacts means the two persisted artifacts do not form a valid pair
var ErrInconsistentArtifacts = errors.New("inconsistent index artifacts")

// Both artifacts of one Persist carry the same Generation
type vectorBlob struct {
	Generation string
	Dimension  int
	Count      int
	Vectors    [][]float32
}

type chunkList struct {
	Generation string         `json:"generation"`
	Count      int            `json:"count"`
	Chunks     []models.Chunk `json:"chunks"`
}

// Dir returns the directory the artifacts are written to
func (vi *VectorIndex) Dir() string {
	return vi.dir
}

// Persist writes the current index contents as index.gob + chunks.json
func (vi *VectorIndex) Persist(ctx context.Context) error {
	vi.ioMu.Lock()
	defer vi.ioMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	generation := uuid.New().String()
	vi.mu.RLock()
	blob := vectorBlob{Generation: generation, Dimension: vi.dimension, Count: len(vi.entries), Vectors: make([][]float32, len(vi.entries))}
	list := chunkList{Generation: generation, Count: len(vi.entries), Chunks: make([]models.Chunk, len(vi.entries))}
	for i, e := range vi.entries {
		blob.Vectors[i] = e.vector
		list.Chunks[i] = e.chunk
	}
	vi.mu.RUnlock()

	if err := os.MkdirAll(vi.dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory %s: %w", vi.dir, err)
	}

	if err := writeAtomic(filepath.Join(vi.dir, IndexFileName), func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(blob)
	}); err != nil {
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if err := writeAtomic(filepath.Join(vi.dir, ChunksFileName), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}); err != nil {
		return fmt.Errorf("failed to write chunk list: %w", err)
	}

	vi.logger.Info("saved index", "vectors", blob.Count, "chunks", list.Count, "generation", generation, "dir", vi.dir)
	return nil
}

// Restore loads previously persisted artifacts. It returns false when none exist.
func (vi *VectorIndex) Restore() (bool, error) {
	vi.ioMu.Lock()
	defer vi.ioMu.Unlock()

	indexPath := filepath.Join(vi.dir, IndexFileName)
	chunksPath := filepath.Join(vi.dir, ChunksFileName)

	indexExists, err := fileExists(indexPath)
	if err != nil {
		return false, err
	}
	chunksExists, err := fileExists(chunksPath)
	if err != nil {
		return false, err
	}

	switch {
	case !indexExists && !chunksExists:
		vi.logger.Info("no existing index found", "dir", vi.dir)
		return false, nil
	case indexExists != chunksExists:
		return false, fmt.Errorf("%w: %s exists=%t, %s exists=%t",
			ErrInconsistentArtifacts, IndexFileName, indexExists, ChunksFileName, chunksExists)
	}

	var blob vectorBlob
	if err := readFile(indexPath, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&blob)
	}); err != nil {
		return false, fmt.Errorf("failed to read vector index: %w", err)
	}

	var list chunkList
	if err := readFile(chunksPath, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&list)
	}); err != nil {
		return false, fmt.Errorf("failed to read chunk list: %w", err)
	}

	if blob.Generation == "" || blob.Generation != list.Generation {
		return false, fmt.Errorf("%w: %s generation %q, %s generation %q",
			ErrInconsistentArtifacts, IndexFileName, blob.Generation, ChunksFileName, list.Generation)
	}
	if blob.Dimension != vi.dimension {
		return false, fmt.Errorf("%w: stored dimension %d, configured %d", ErrInconsistentArtifacts, blob.Dimension, vi.dimension)
	}
	if blob.Count != len(blob.Vectors) || list.Count != len(list.Chunks) || len(blob.Vectors) != len(list.Chunks) {
		return false, fmt.Errorf("%w: %d vectors, %d chunks", ErrInconsistentArtifacts, len(blob.Vectors), len(list.Chunks))
	}

	entries := make([]entry, len(list.Chunks))
	for i := range list.Chunks {
		if len(blob.Vectors[i]) != vi.dimension {
			return false, fmt.Errorf("%w: vector %d has length %d", ErrInconsistentArtifacts, i, len(blob.Vectors[i]))
		}
		entries[i] = entry{chunk: list.Chunks[i], vector: blob.Vectors[i]}
	}

	vi.mu.Lock()
	vi.entries = entries
	vi.mu.Unlock()

	vi.logger.Info("loaded index", "vectors", len(entries), "dir", vi.dir)
	return true, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// writeAtomic writes to a temp file in the same directory and renames it into place
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return read(f)
}
