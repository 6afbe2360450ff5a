// ABOUTME: Vector and SearchResult types for the similarity index
// ABOUTME: Distances are squared Euclidean, lower is closer
package models

import (
	"errors"
	"fmt"
)

// DefaultDimension matches all-MiniLM-L6-v2 style sentence embeddings
const DefaultDimension = 384

// Vector is a fixed-length embedding. Vectors are never mutated after creation.
type Vector []float32

// ValidateDimension checks that the vector has exactly expectedDim components
func (v Vector) ValidateDimension(expectedDim int) error {
	if len(v) == 0 {
		return errors.New("vector cannot be empty")
	}
	if len(v) != expectedDim {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", expectedDim, len(v))
	}
	return nil
}

// SearchResult pairs a chunk with its squared Euclidean distance to the query
type SearchResult struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}
