// ABOUTME: Exact nearest-neighbor index over fixed-dimension float32 vectors
// ABOUTME: Brute-force squared Euclidean search with stable ordering on ties
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harper/docqa/internal/models"
)

// ErrDimensionMismatch is returned when chunk and vector counts differ or a vector
// does not have the configured dimension
var ErrDimensionMismatch = errors.New("dimension mismatch")

// entry keeps a chunk and its vector together so the pairing cannot drift
type entry struct {
	chunk  models.Chunk
	vector models.Vector
}

// VectorIndex stores chunk embeddings and answers k-nearest-neighbor queries.
// Search may run concurrently; Add, Clear and Restore are exclusive.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry

	// ioMu serializes Persist and Restore against each other
	ioMu sync.Mutex
	dir  string

	logger *log.Logger
}

// New creates an empty index of the given dimension persisting under dir
func New(dimension int, dir string, logger *log.Logger) (*VectorIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &VectorIndex{
		dimension: dimension,
		dir:       dir,
		logger:    logger.WithPrefix("index"),
	}, nil
}

// Dimension returns the configured vector length
func (vi *VectorIndex) Dimension() int {
	return vi.dimension
}

// Size returns the number of stored entries
func (vi *VectorIndex) Size() int {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	return len(vi.entries)
}

// Add appends chunks and their vectors. Nothing is added unless every vector is valid.
func (vi *VectorIndex) Add(chunks []models.Chunk, vectors []models.Vector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", ErrDimensionMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != vi.dimension {
			return fmt.Errorf("%w: vector %d has length %d, index dimension is %d", ErrDimensionMismatch, i, len(v), vi.dimension)
		}
	}

	batch := make([]entry, len(chunks))
	for i := range chunks {
		batch[i] = entry{chunk: chunks[i], vector: vectors[i]}
	}

	vi.mu.Lock()
	vi.entries = append(vi.entries, batch...)
	total := len(vi.entries)
	vi.mu.Unlock()

	vi.logger.Info("added chunks", "added", len(batch), "total", total)
	return nil
}

// Search returns up to k entries closest to query, ascending by distance
func (vi *VectorIndex) Search(query models.Vector, k int) []models.SearchResult {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	n := len(vi.entries)
	if n == 0 {
		vi.logger.Warn("search on empty index")
		return []models.SearchResult{}
	}
	if k <= 0 {
		return []models.SearchResult{}
	}
	if len(query) != vi.dimension {
		vi.logger.Warn("query dimension mismatch", "got", len(query), "want", vi.dimension)
		return []models.SearchResult{}
	}
	if k > n {
		k = n
	}

	type scored struct {
		pos      int
		distance float64
	}
	ranked := make([]scored, n)
	for i := range vi.entries {
		ranked[i] = scored{pos: i, distance: squaredL2(query, vi.entries[i].vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})

	results := make([]models.SearchResult, 0, k)
	for _, r := range ranked[:k] {
		if r.pos < 0 || r.pos >= n {
			vi.logger.Error("invalid index position", "position", r.pos, "entries", n)
			continue
		}
		results = append(results, models.SearchResult{
			Chunk:    vi.entries[r.pos].chunk,
			Distance: r.distance,
		})
	}
	return results
}

// Clear drops every entry. Persisted artifacts are untouched until the next Persist.
func (vi *VectorIndex) Clear() {
	vi.mu.Lock()
	vi.entries = nil
	vi.mu.Unlock()
	vi.logger.Info("index cleared")
}

// Sample returns up to n chunks in insertion order
func (vi *VectorIndex) Sample(n int) []models.Chunk {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	if n > len(vi.entries) {
		n = len(vi.entries)
	}
	if n <= 0 {
		return []models.Chunk{}
	}
	out := make([]models.Chunk, n)
	for i := 0; i < n; i++ {
		out[i] = vi.entries[i].chunk
	}
	return out
}

// SourceCount returns the number of distinct source names in the index
func (vi *VectorIndex) SourceCount() int {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range vi.entries {
		seen[e.chunk.Metadata.Source] = struct{}{}
	}
	return len(seen)
}

// squaredL2 accumulates in float64 to keep ties between equal vectors exact
func squaredL2(a, b models.Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
